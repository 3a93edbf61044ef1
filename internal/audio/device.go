package audio

import "context"

// CaptureDevice records narration into a file.
type CaptureDevice interface {
	// BeginCapture starts recording into path.
	BeginCapture(ctx context.Context, path string) (Session, error)
}

// Session is one in-progress capture.
type Session interface {
	// End stops capturing and reports whether path holds a complete recording.
	End() bool

	// Interrupted is closed when the device terminates the capture on its own,
	// before End is called.
	Interrupted() <-chan struct{}
}

// PlaybackDevice plays audio files.
type PlaybackDevice interface {
	// Play starts playing path. The returned channel is closed when playback
	// finishes or is stopped.
	Play(ctx context.Context, path string) (<-chan struct{}, error)

	// Stop ends the current playback, if any.
	Stop()
}
