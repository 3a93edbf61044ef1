package narration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rcliao/happy-days/internal/artifact"
	"github.com/rcliao/happy-days/internal/audio"
	"github.com/rcliao/happy-days/internal/model"
)

// Player plays a memory's narration. It never interrupts a capture; a
// capture that starts during playback stops it.
type Player struct {
	layout   artifact.Layout
	resource *audio.Resource
	device   audio.PlaybackDevice
	logger   *zap.Logger
}

// NewPlayer creates a player sharing resource with the recorder.
func NewPlayer(layout artifact.Layout, resource *audio.Resource, device audio.PlaybackDevice, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{layout: layout, resource: resource, device: device, logger: logger}
}

// Play starts playing the memory's audio and returns a channel closed when
// playback ends. A playback already running is replaced.
func (p *Player) Play(ctx context.Context, id model.ID) (<-chan struct{}, error) {
	path := p.layout.Paths(id).Audio
	if !artifact.Exists(path) {
		return nil, fmt.Errorf("%w: no audio for %s", ErrNotFound, id)
	}

	lease, err := p.resource.Acquire(audio.Playback, p.device.Stop)
	if err != nil {
		return nil, err
	}

	done, err := p.device.Play(ctx, path)
	if err != nil {
		p.resource.Release(lease)
		return nil, fmt.Errorf("play %s: %w", id, err)
	}

	go func() {
		<-done
		p.resource.Release(lease)
	}()

	p.logger.Debug("playback started", zap.String("memory_id", id.String()), zap.String("path", path))
	return done, nil
}

// Stop ends the current playback, if any.
func (p *Player) Stop() {
	if p.resource.Holder() == audio.Playback {
		p.device.Stop()
	}
}
