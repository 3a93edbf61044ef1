package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/rcliao/happy-days/internal/artifact"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Change lists the memory-relevant files touched since the last callback.
type Change struct {
	Thumbnails  []string
	Transcripts []string
}

// Watcher watches the storage directory for thumbnails and transcripts
// written or removed by other processes.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(Change)
	logger   *zap.Logger
	stopCh   chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	pending Change
	timer   *time.Timer
}

// NewWatcher creates a watcher on dir. onChange runs on a timer goroutine
// after changes have been quiet for debounce.
func NewWatcher(dir string, debounce time.Duration, onChange func(Change), logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:      dir,
		watcher:  fw,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() {
	go w.loop()
	w.logger.Info("watching storage directory", zap.String("path", w.dir))
}

// Stop stops watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	<-w.done

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.record(filepath.Base(event.Name))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) record(name string) {
	if artifact.Hidden(name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case strings.HasSuffix(name, artifact.ThumbnailExt):
		w.pending.Thumbnails = appendUnique(w.pending.Thumbnails, name)
	case strings.HasSuffix(name, artifact.TranscriptExt):
		w.pending.Transcripts = appendUnique(w.pending.Transcripts, name)
	default:
		return
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	c := w.pending
	w.pending = Change{}
	w.mu.Unlock()

	if len(c.Thumbnails) == 0 && len(c.Transcripts) == 0 {
		return
	}
	select {
	case <-w.stopCh:
		return
	default:
	}
	w.logger.Debug("storage directory changed",
		zap.Int("thumbnails", len(c.Thumbnails)),
		zap.Int("transcripts", len(c.Transcripts)))
	w.onChange(c)
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
