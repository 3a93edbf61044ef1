package narration

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/happy-days/internal/audio"
	"github.com/rcliao/happy-days/internal/model"
	"github.com/rcliao/happy-days/internal/transcribe"
)

func TestStopFalseLeavesAudioUntouched(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, transcriberFunc(func(ctx context.Context, path string) (<-chan transcribe.Result, error) {
		calls.Add(1)
		return results(transcribe.Result{Text: "x", Final: true})(ctx, path)
	}))
	f.writeAudio(t, "original narration")

	require.NoError(t, f.recorder.Start(context.Background(), testID))
	state, id := f.recorder.State()
	assert.Equal(t, Recording, state)
	assert.Equal(t, testID, id)

	require.NoError(t, f.recorder.Stop(false))
	f.coord.Wait()

	assert.Equal(t, "original narration", f.read(t, f.layout.Paths(testID).Audio))
	assert.Empty(t, f.captureFiles(t))
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, uint64(0), f.coord.Current(testID))
	assert.Equal(t, 1, f.events.count(NarrationDiscarded))
	assert.Equal(t, audio.None, f.resource.Holder())

	state, _ = f.recorder.State()
	assert.Equal(t, Idle, state)
}

func TestStopTrueCommitsAndTranscribes(t *testing.T) {
	f := newFixture(t, results(transcribe.Result{Text: " hello there ", Final: true}))
	f.writeAudio(t, "original narration")

	require.NoError(t, f.recorder.Start(context.Background(), testID))
	require.NoError(t, f.recorder.Stop(true))
	f.coord.Wait()

	paths := f.layout.Paths(testID)
	assert.Equal(t, "new narration", f.read(t, paths.Audio))
	assert.Equal(t, "hello there\n", f.read(t, paths.Transcript))
	assert.Equal(t, uint64(1), f.coord.Current(testID))
	assert.Empty(t, f.captureFiles(t))

	committed, ok := f.events.find(NarrationCommitted)
	require.True(t, ok)
	assert.Equal(t, uint64(1), committed.Generation)

	transcript, ok := f.events.find(TranscriptCommitted)
	require.True(t, ok)
	assert.Equal(t, "hello there", transcript.Text)
	assert.Equal(t, uint64(1), transcript.Generation)
	assert.False(t, transcript.At.IsZero())
}

func TestCommitNeverHidesExistingAudio(t *testing.T) {
	f := newFixture(t, results(transcribe.Result{Text: "x", Final: true}))
	f.writeAudio(t, "original narration")
	audioPath := f.layout.Paths(testID).Audio

	var missing atomic.Bool
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := os.Stat(audioPath); err != nil {
				missing.Store(true)
			}
		}
	}()

	for i := 0; i < 25; i++ {
		require.NoError(t, f.recorder.Start(context.Background(), testID))
		require.NoError(t, f.recorder.Stop(true))
	}
	close(stop)
	wg.Wait()
	f.coord.Wait()

	assert.False(t, missing.Load(), "audio artifact was observed absent during a commit")
	assert.Equal(t, uint64(25), f.coord.Current(testID))
}

func TestStartWhileRecordingIsBusy(t *testing.T) {
	f := newFixture(t, results(transcribe.Result{Text: "x", Final: true}))

	require.NoError(t, f.recorder.Start(context.Background(), testID))
	first := f.capture.last()

	err := f.recorder.Start(context.Background(), testID)
	assert.True(t, errors.Is(err, ErrResourceBusy))

	state, id := f.recorder.State()
	assert.Equal(t, Recording, state)
	assert.Equal(t, testID, id)
	assert.False(t, first.ended.Load(), "original session must keep running")
	assert.Len(t, f.capture.sessions, 1)

	require.NoError(t, f.recorder.Stop(true))
	f.coord.Wait()
	assert.Equal(t, "new narration", f.read(t, f.layout.Paths(testID).Audio))
}

func TestStartUnknownMemory(t *testing.T) {
	f := newFixture(t, nil)
	err := f.recorder.Start(context.Background(), model.ID("01BX5ZZKBKACTAV9WEVGEMMVRZ"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, audio.None, f.resource.Holder())
}

func TestStopWhenIdle(t *testing.T) {
	f := newFixture(t, nil)
	assert.True(t, errors.Is(f.recorder.Stop(true), ErrNotRecording))
	assert.NoError(t, f.recorder.Close())
}

func TestDeviceFailureKeepsAudio(t *testing.T) {
	f := newFixture(t, nil)
	f.capture.ok = false
	f.writeAudio(t, "original narration")

	require.NoError(t, f.recorder.Start(context.Background(), testID))
	err := f.recorder.Stop(true)
	assert.True(t, errors.Is(err, ErrCapture))

	assert.Equal(t, "original narration", f.read(t, f.layout.Paths(testID).Audio))
	assert.Equal(t, uint64(0), f.coord.Current(testID))
	assert.Equal(t, audio.None, f.resource.Holder())
}

func TestInterruptedCaptureIsDiscarded(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, transcriberFunc(func(ctx context.Context, path string) (<-chan transcribe.Result, error) {
		calls.Add(1)
		return results(transcribe.Result{Text: "x", Final: true})(ctx, path)
	}))
	f.writeAudio(t, "original narration")

	require.NoError(t, f.recorder.Start(context.Background(), testID))
	close(f.capture.last().interrupted)

	require.Eventually(t, func() bool {
		state, _ := f.recorder.State()
		return state == Idle
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "original narration", f.read(t, f.layout.Paths(testID).Audio))
	assert.Empty(t, f.captureFiles(t))
	assert.Equal(t, 1, f.events.count(CaptureInterrupted))
	assert.Equal(t, 1, f.events.count(NarrationDiscarded))
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, audio.None, f.resource.Holder())
	assert.True(t, errors.Is(f.recorder.Stop(true), ErrNotRecording))

	// The recorder is usable again.
	require.NoError(t, f.recorder.Start(context.Background(), testID))
	require.NoError(t, f.recorder.Stop(false))
}

func TestCloseDiscardsActiveCapture(t *testing.T) {
	f := newFixture(t, nil)
	f.writeAudio(t, "original narration")

	require.NoError(t, f.recorder.Start(context.Background(), testID))
	require.NoError(t, f.recorder.Close())

	state, _ := f.recorder.State()
	assert.Equal(t, Idle, state)
	assert.Equal(t, "original narration", f.read(t, f.layout.Paths(testID).Audio))
}

func TestRecorderPreemptsPlayback(t *testing.T) {
	f := newFixture(t, results(transcribe.Result{Text: "x", Final: true}))
	f.writeAudio(t, "original narration")

	done, err := f.player.Play(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, audio.Playback, f.resource.Holder())

	require.NoError(t, f.recorder.Start(context.Background(), testID))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("playback was not stopped by capture")
	}
	_, stops := f.playback.counts()
	assert.Equal(t, 1, stops)
	assert.Equal(t, audio.Capture, f.resource.Holder())

	_, err = f.player.Play(context.Background(), testID)
	assert.True(t, errors.Is(err, ErrResourceBusy))
	plays, _ := f.playback.counts()
	assert.Equal(t, 1, plays)

	require.NoError(t, f.recorder.Stop(false))
	assert.Equal(t, audio.None, f.resource.Holder())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "recording", Recording.String())
	assert.Equal(t, "finishing", Finishing.String())
	assert.Equal(t, "state(7)", State(7).String())
}
