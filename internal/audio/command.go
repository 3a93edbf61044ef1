package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// PathPlaceholder in a command's argv is replaced by the file path. If no
// argument contains it the path is appended.
const PathPlaceholder = "{path}"

// endGrace is how long End waits for a recorder to finalize after SIGINT.
const endGrace = 5 * time.Second

func expand(argv []string, path string) ([]string, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	out := make([]string, len(argv))
	found := false
	for i, a := range argv {
		if strings.Contains(a, PathPlaceholder) {
			found = true
		}
		out[i] = strings.ReplaceAll(a, PathPlaceholder, path)
	}
	if !found {
		out = append(out, path)
	}
	return out, nil
}

// CommandCapture records by running an external program such as sox or
// arecord. The program must write the file and finalize it on SIGINT.
type CommandCapture struct {
	Argv   []string
	Logger *zap.Logger
}

func (c *CommandCapture) BeginCapture(ctx context.Context, path string) (Session, error) {
	argv, err := expand(c.Argv, path)
	if err != nil {
		return nil, fmt.Errorf("capture command: %w", err)
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start capture: %w", err)
	}

	s := &commandSession{
		cmd:         cmd,
		path:        path,
		exited:      make(chan struct{}),
		interrupted: make(chan struct{}),
	}
	go func() {
		err := cmd.Wait()
		close(s.exited)
		if !s.ending.Load() {
			logger.Warn("capture command exited early", zap.String("path", path), zap.Error(err))
			close(s.interrupted)
		}
	}()
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = cmd.Process.Kill()
			case <-s.exited:
			}
		}()
	}
	return s, nil
}

type commandSession struct {
	cmd         *exec.Cmd
	path        string
	ending      atomic.Bool
	exited      chan struct{}
	interrupted chan struct{}
	endOnce     sync.Once
	ok          bool
}

func (s *commandSession) End() bool {
	s.endOnce.Do(func() {
		s.ending.Store(true)
		select {
		case <-s.interrupted:
			return
		default:
		}
		_ = s.cmd.Process.Signal(os.Interrupt)
		select {
		case <-s.exited:
		case <-time.After(endGrace):
			_ = s.cmd.Process.Kill()
			<-s.exited
		}
		info, err := os.Stat(s.path)
		s.ok = err == nil && info.Size() > 0
	})
	return s.ok
}

func (s *commandSession) Interrupted() <-chan struct{} {
	return s.interrupted
}

// CommandPlayback plays files by running an external player such as
// afplay, aplay or sox's play.
type CommandPlayback struct {
	Argv []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

func (p *CommandPlayback) Play(ctx context.Context, path string) (<-chan struct{}, error) {
	argv, err := expand(p.Argv, path)
	if err != nil {
		return nil, fmt.Errorf("playback command: %w", err)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start playback: %w", err)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
		}
		p.mu.Unlock()
		close(done)
	}()
	return done, nil
}

func (p *CommandPlayback) Stop() {
	p.mu.Lock()
	cmd := p.cmd
	p.cmd = nil
	p.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
