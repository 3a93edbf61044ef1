package narration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rcliao/happy-days/internal/artifact"
	"github.com/rcliao/happy-days/internal/model"
	"github.com/rcliao/happy-days/internal/transcribe"
)

// Coordinator owns per-memory audio generations and the in-flight
// transcription jobs. A job's transcript is written only if no newer audio
// was committed for the memory while it ran.
type Coordinator struct {
	layout      artifact.Layout
	transcriber transcribe.Transcriber
	sink        EventSink
	logger      *zap.Logger

	locks *keyedMutex

	mu          sync.Mutex
	generations map[model.ID]uint64

	ctx    context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup
}

// NewCoordinator creates a coordinator that writes transcripts into layout.
func NewCoordinator(layout artifact.Layout, t transcribe.Transcriber, sink EventSink, logger *zap.Logger) *Coordinator {
	if t == nil {
		t = transcribe.Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		layout:      layout,
		transcriber: t,
		sink:        sink,
		logger:      logger,
		locks:       newKeyedMutex(),
		generations: make(map[model.ID]uint64),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Current returns the memory's audio generation. Memories without audio
// committed in this process are at generation 0.
func (c *Coordinator) Current(id model.ID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[id]
}

// CommitAudio moves a finished capture over the memory's audio artifact and
// advances its generation. The rename and the bump happen under the memory's
// lock so no transcript write can interleave.
func (c *Coordinator) CommitAudio(id model.ID, capturePath string) (uint64, error) {
	unlock := c.locks.lock(id)
	defer unlock()

	if err := artifact.Replace(capturePath, c.layout.Paths(id).Audio); err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.generations[id]++
	gen := c.generations[id]
	c.mu.Unlock()
	return gen, nil
}

// Submit transcribes audioPath in the background on behalf of generation gen.
// It never blocks; the outcome is reported as an event.
func (c *Coordinator) Submit(id model.ID, audioPath string, gen uint64) {
	c.jobs.Add(1)
	go func() {
		defer c.jobs.Done()
		c.run(id, audioPath, gen)
	}()
}

// Retranscribe resubmits the memory's current audio at its current generation.
func (c *Coordinator) Retranscribe(id model.ID) error {
	audioPath := c.layout.Paths(id).Audio
	if !artifact.Exists(audioPath) {
		return fmt.Errorf("%w: no audio for %s", ErrNotFound, id)
	}
	c.Submit(id, audioPath, c.Current(id))
	return nil
}

// Wait blocks until every submitted job has finished.
func (c *Coordinator) Wait() {
	c.jobs.Wait()
}

// Close cancels in-flight transcriptions and waits for them to finish.
func (c *Coordinator) Close() {
	c.cancel()
	c.jobs.Wait()
}

func (c *Coordinator) run(id model.ID, audioPath string, gen uint64) {
	text, err := c.transcribe(audioPath)
	if err != nil {
		c.fail(id, gen, err)
		return
	}
	if text == "" {
		c.fail(id, gen, errors.New("empty result"))
		return
	}
	c.commit(id, gen, text)
}

// transcribe waits for the final result; partial results are skipped.
func (c *Coordinator) transcribe(audioPath string) (string, error) {
	results, err := c.transcriber.Transcribe(c.ctx, audioPath)
	if err != nil {
		return "", err
	}
	var (
		final string
		got   bool
	)
	for r := range results {
		switch {
		case r.Err != nil:
			err = r.Err
		case r.Final:
			final, got = r.Text, true
		}
	}
	if err != nil {
		return "", err
	}
	if !got {
		return "", errors.New("no final result")
	}
	return strings.TrimSpace(final), nil
}

func (c *Coordinator) commit(id model.ID, gen uint64, text string) {
	unlock := c.locks.lock(id)
	defer unlock()

	if c.stale(id, gen) {
		return
	}

	if err := artifact.WriteFile(c.layout.Paths(id).Transcript, []byte(text+"\n")); err != nil {
		c.logger.Error("write transcript",
			zap.String("memory_id", id.String()),
			zap.Uint64("generation", gen),
			zap.Error(err))
		publish(c.sink, Event{Kind: TranscriptionFailed, MemoryID: id, Generation: gen, Err: err})
		return
	}
	publish(c.sink, Event{Kind: TranscriptCommitted, MemoryID: id, Generation: gen, Text: text})
}

// fail reports a failed job. A newer narration has superseded a stale job,
// so its failure is discarded rather than reported.
func (c *Coordinator) fail(id model.ID, gen uint64, err error) {
	if c.stale(id, gen) {
		return
	}
	publish(c.sink, Event{
		Kind:       TranscriptionFailed,
		MemoryID:   id,
		Generation: gen,
		Err:        fmt.Errorf("%w: %v", ErrTranscription, err),
	})
}

// stale publishes TranscriptDiscarded and reports true when gen is no longer
// the memory's current generation.
func (c *Coordinator) stale(id model.ID, gen uint64) bool {
	cur := c.Current(id)
	if cur == gen {
		return false
	}
	c.logger.Debug("discarding stale transcript",
		zap.String("memory_id", id.String()),
		zap.Uint64("generation", gen),
		zap.Uint64("current", cur))
	publish(c.sink, Event{Kind: TranscriptDiscarded, MemoryID: id, Generation: gen})
	return true
}
