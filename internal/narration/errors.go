package narration

import (
	"errors"

	"github.com/rcliao/happy-days/internal/audio"
)

var (
	// ErrResourceBusy is returned when recording or playback is attempted
	// while a capture holds the audio resource.
	ErrResourceBusy = audio.ErrResourceBusy

	// ErrNotFound is returned for a memory (or its audio) that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotRecording is returned by Stop when no capture is in progress.
	ErrNotRecording = errors.New("not recording")

	// ErrCapture is returned by Stop(true) when the device did not produce a
	// complete recording. The existing audio is left unchanged.
	ErrCapture = errors.New("capture failed")

	// ErrTranscription wraps recognizer failures and empty results. It is only
	// delivered inside TranscriptionFailed events.
	ErrTranscription = errors.New("transcription failed")
)
