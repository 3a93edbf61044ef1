// Package transcribe provides speech-to-text providers for narration audio.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrDisabled is reported when no transcription provider is configured.
var ErrDisabled = errors.New("transcription disabled")

// ErrUnavailable is returned while the provider's circuit breaker is open.
var ErrUnavailable = errors.New("transcription unavailable")

// Result is one message from a transcription. Providers may send any number
// of partial results; the last message is either Final or carries Err.
type Result struct {
	Text  string
	Final bool
	Err   error
}

// Transcriber converts an audio file to text asynchronously. The returned
// channel is closed after the final result or an error.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (<-chan Result, error)
}

// Recognizer is a blocking speech-to-text call.
type Recognizer interface {
	Recognize(ctx context.Context, audioPath string) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, audioPath string) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, audioPath string) (string, error) {
	return f(ctx, audioPath)
}

// Async runs a blocking Recognizer on its own goroutine.
func Async(r Recognizer) Transcriber {
	return asyncTranscriber{r}
}

type asyncTranscriber struct {
	r Recognizer
}

func (a asyncTranscriber) Transcribe(ctx context.Context, audioPath string) (<-chan Result, error) {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		text, err := a.r.Recognize(ctx, audioPath)
		if err != nil {
			ch <- Result{Err: err}
			return
		}
		ch <- Result{Text: text, Final: true}
	}()
	return ch, nil
}

// Disabled fails every transcription with ErrDisabled.
type Disabled struct{}

func (Disabled) Transcribe(ctx context.Context, audioPath string) (<-chan Result, error) {
	return nil, ErrDisabled
}

// Options selects and configures a provider.
type Options struct {
	Provider string // "openai" | "none" | ""
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Stream   bool
	Timeout  time.Duration
	Breaker  BreakerSettings
	Logger   *zap.Logger
}

// New builds the configured provider wrapped in a circuit breaker.
func New(opts Options) (Transcriber, error) {
	switch opts.Provider {
	case "", "none":
		return Disabled{}, nil
	case "openai":
		client := NewOpenAITranscriber(opts.BaseURL, opts.APIKey, opts.Model, opts.Language, opts.Timeout)
		client.Stream = opts.Stream
		return NewBreaker(client, opts.Breaker, opts.Logger), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", opts.Provider)
	}
}
