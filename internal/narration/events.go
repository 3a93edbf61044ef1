package narration

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/happy-days/internal/model"
)

// Kind identifies what happened in the narration pipeline.
type Kind int

const (
	NarrationCommitted Kind = iota + 1
	NarrationDiscarded
	CaptureInterrupted
	TranscriptCommitted
	TranscriptDiscarded
	TranscriptionFailed
)

func (k Kind) String() string {
	switch k {
	case NarrationCommitted:
		return "narration_committed"
	case NarrationDiscarded:
		return "narration_discarded"
	case CaptureInterrupted:
		return "capture_interrupted"
	case TranscriptCommitted:
		return "transcript_committed"
	case TranscriptDiscarded:
		return "transcript_discarded"
	case TranscriptionFailed:
		return "transcription_failed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event reports a pipeline outcome. Generation is the audio generation the
// event refers to; Text is set for committed transcripts, Err for failures.
type Event struct {
	Kind       Kind
	MemoryID   model.ID
	Generation uint64
	Text       string
	Err        error
	At         time.Time
}

// EventSink receives pipeline events. Publish is called from recorder and
// transcription goroutines and must not block for long.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Publish(e Event) { f(e) }

// Sinks fans an event out to every non-nil sink in order.
type Sinks []EventSink

func (s Sinks) Publish(e Event) {
	for _, sink := range s {
		if sink != nil {
			sink.Publish(e)
		}
	}
}

// LogSink logs events.
type LogSink struct {
	Logger *zap.Logger
}

func (l LogSink) Publish(e Event) {
	if l.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("event", e.Kind.String()),
		zap.String("memory_id", e.MemoryID.String()),
		zap.Uint64("generation", e.Generation),
	}
	switch e.Kind {
	case NarrationCommitted, TranscriptCommitted:
		l.Logger.Info("narration event", fields...)
	case TranscriptDiscarded, NarrationDiscarded:
		l.Logger.Debug("narration event", fields...)
	default:
		l.Logger.Warn("narration event", append(fields, zap.Error(e.Err))...)
	}
}

func publish(sink EventSink, e Event) {
	if sink == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	sink.Publish(e)
}
