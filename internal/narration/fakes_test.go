package narration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcliao/happy-days/internal/artifact"
	"github.com/rcliao/happy-days/internal/audio"
	"github.com/rcliao/happy-days/internal/model"
	"github.com/rcliao/happy-days/internal/transcribe"
)

const testID = model.ID("01ARZ3NDEKTSV4RRFFQ69G5FAV")

type fakeCapture struct {
	mu       sync.Mutex
	data     []byte
	ok       bool
	sessions []*fakeSession
}

func (c *fakeCapture) BeginCapture(ctx context.Context, path string) (audio.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := &fakeSession{path: path, data: c.data, ok: c.ok, interrupted: make(chan struct{})}
	c.sessions = append(c.sessions, s)
	return s, nil
}

func (c *fakeCapture) last() *fakeSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[len(c.sessions)-1]
}

type fakeSession struct {
	path        string
	data        []byte
	ok          bool
	ended       atomic.Bool
	once        sync.Once
	interrupted chan struct{}
}

func (s *fakeSession) End() bool {
	s.once.Do(func() {
		s.ended.Store(true)
		select {
		case <-s.interrupted:
			s.ok = false
		default:
		}
		if s.ok {
			s.ok = os.WriteFile(s.path, s.data, 0o644) == nil
		}
	})
	return s.ok
}

func (s *fakeSession) Interrupted() <-chan struct{} { return s.interrupted }

type fakePlayback struct {
	mu    sync.Mutex
	plays []string
	stops int
	done  chan struct{}
}

func (p *fakePlayback) Play(ctx context.Context, path string) (<-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays = append(p.plays, path)
	p.done = make(chan struct{})
	return p.done, nil
}

func (p *fakePlayback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
}

func (p *fakePlayback) counts() (plays, stops int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.plays), p.stops
}

type transcriberFunc func(ctx context.Context, path string) (<-chan transcribe.Result, error)

func (f transcriberFunc) Transcribe(ctx context.Context, path string) (<-chan transcribe.Result, error) {
	return f(ctx, path)
}

// results returns a transcriber that always replies with rs.
func results(rs ...transcribe.Result) transcriberFunc {
	return func(ctx context.Context, path string) (<-chan transcribe.Result, error) {
		ch := make(chan transcribe.Result, len(rs))
		for _, r := range rs {
			ch <- r
		}
		close(ch)
		return ch, nil
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Publish(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) find(k Kind) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Kind == k {
			return e, true
		}
	}
	return Event{}, false
}

func (l *eventLog) count(k Kind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

type fixture struct {
	layout   artifact.Layout
	resource *audio.Resource
	capture  *fakeCapture
	playback *fakePlayback
	events   *eventLog
	coord    *Coordinator
	recorder *Recorder
	player   *Player
}

func newFixture(t *testing.T, tr transcribe.Transcriber) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		layout:   artifact.Layout{Dir: dir},
		resource: audio.NewResource(),
		capture:  &fakeCapture{data: []byte("new narration"), ok: true},
		playback: &fakePlayback{},
		events:   &eventLog{},
	}
	require.NoError(t, os.WriteFile(f.layout.Paths(testID).Thumbnail, []byte("thumb"), 0o644))

	f.coord = NewCoordinator(f.layout, tr, f.events, nil)
	f.recorder = NewRecorder(f.layout, f.resource, f.capture, f.coord, f.events, nil)
	f.player = NewPlayer(f.layout, f.resource, f.playback, nil)
	t.Cleanup(f.coord.Close)
	return f
}

func (f *fixture) writeAudio(t *testing.T, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.layout.Paths(testID).Audio, []byte(data), 0o644))
}

func (f *fixture) read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

// captureFiles lists leftover temporary capture files.
func (f *fixture) captureFiles(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(f.layout.Dir, ".capture-*"))
	require.NoError(t, err)
	return matches
}
