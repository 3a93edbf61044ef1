// Package narration records spoken narration for memories, plays it back
// and drives background transcription of committed audio.
package narration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rcliao/happy-days/internal/artifact"
	"github.com/rcliao/happy-days/internal/audio"
	"github.com/rcliao/happy-days/internal/model"
)

// State is the recorder state.
type State int

const (
	Idle State = iota
	Recording
	Finishing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Finishing:
		return "finishing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Recorder captures narration for one memory at a time.
//
// Starting a capture preempts any playback on the shared resource. A capture
// that the device ends on its own is discarded as if Stop(false) was called.
type Recorder struct {
	layout   artifact.Layout
	resource *audio.Resource
	device   audio.CaptureDevice
	coord    *Coordinator
	sink     EventSink
	logger   *zap.Logger

	mu      sync.Mutex
	state   State
	session *session
}

type session struct {
	id      model.ID
	name    string
	path    string
	capture audio.Session
	lease   audio.Lease
	done    chan struct{}
}

// NewRecorder creates an idle recorder.
func NewRecorder(layout artifact.Layout, resource *audio.Resource, device audio.CaptureDevice, coord *Coordinator, sink EventSink, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		layout:   layout,
		resource: resource,
		device:   device,
		coord:    coord,
		sink:     sink,
		logger:   logger,
	}
}

// State returns the current state and, unless idle, the memory being recorded.
func (r *Recorder) State() (State, model.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return r.state, ""
	}
	return r.state, r.session.id
}

// Start begins capturing narration for id into a fresh temporary file.
func (r *Recorder) Start(ctx context.Context, id model.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Idle {
		return fmt.Errorf("%w: %s in progress", ErrResourceBusy, r.state)
	}
	if !artifact.Exists(r.layout.Paths(id).Thumbnail) {
		return fmt.Errorf("%w: memory %s", ErrNotFound, id)
	}

	lease, err := r.resource.Acquire(audio.Capture, nil)
	if err != nil {
		return err
	}

	name := uuid.NewString()
	path := r.layout.CapturePath(name)
	capture, err := r.device.BeginCapture(ctx, path)
	if err != nil {
		r.resource.Release(lease)
		r.remove(path)
		return fmt.Errorf("begin capture: %w", err)
	}

	s := &session{
		id:      id,
		name:    name,
		path:    path,
		capture: capture,
		lease:   lease,
		done:    make(chan struct{}),
	}
	r.state, r.session = Recording, s
	go r.watch(s)

	r.logger.Debug("recording started",
		zap.String("memory_id", id.String()),
		zap.String("session", name),
		zap.String("path", path))
	return nil
}

// Stop ends the capture. With success the recording replaces the memory's
// audio and is submitted for transcription; otherwise it is discarded and the
// existing audio is left untouched.
func (r *Recorder) Stop(success bool) error {
	r.mu.Lock()
	s := r.session
	if r.state != Recording || s == nil {
		r.mu.Unlock()
		return ErrNotRecording
	}
	r.state = Finishing
	r.mu.Unlock()

	return r.finish(s, success)
}

// Close discards an in-progress capture.
func (r *Recorder) Close() error {
	if err := r.Stop(false); err != nil && !errors.Is(err, ErrNotRecording) {
		return err
	}
	return nil
}

func (r *Recorder) watch(s *session) {
	select {
	case <-s.capture.Interrupted():
	case <-s.done:
		return
	}

	r.mu.Lock()
	if r.session != s || r.state != Recording {
		r.mu.Unlock()
		return
	}
	r.state = Finishing
	r.mu.Unlock()

	r.logger.Warn("capture interrupted",
		zap.String("memory_id", s.id.String()),
		zap.String("session", s.name))
	publish(r.sink, Event{Kind: CaptureInterrupted, MemoryID: s.id, Err: ErrCapture})
	_ = r.finish(s, false)
}

func (r *Recorder) finish(s *session, success bool) error {
	close(s.done)
	ok := s.capture.End()

	var err error
	switch {
	case success && ok:
		err = r.commit(s)
	case success:
		err = ErrCapture
		publish(r.sink, Event{Kind: NarrationDiscarded, MemoryID: s.id, Err: err})
	default:
		publish(r.sink, Event{Kind: NarrationDiscarded, MemoryID: s.id})
	}

	r.remove(s.path)
	r.resource.Release(s.lease)

	r.mu.Lock()
	r.state, r.session = Idle, nil
	r.mu.Unlock()
	return err
}

func (r *Recorder) commit(s *session) error {
	gen, err := r.coord.CommitAudio(s.id, s.path)
	if err != nil {
		r.logger.Error("commit narration",
			zap.String("memory_id", s.id.String()),
			zap.String("session", s.name),
			zap.Error(err))
		publish(r.sink, Event{Kind: NarrationDiscarded, MemoryID: s.id, Err: err})
		return err
	}

	r.logger.Info("narration committed",
		zap.String("memory_id", s.id.String()),
		zap.Uint64("generation", gen))
	publish(r.sink, Event{Kind: NarrationCommitted, MemoryID: s.id, Generation: gen})
	r.coord.Submit(s.id, r.layout.Paths(s.id).Audio, gen)
	return nil
}

// remove deletes a leftover capture file. After a commit it is already gone.
func (r *Recorder) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("remove capture file", zap.String("path", path), zap.Error(err))
	}
}
