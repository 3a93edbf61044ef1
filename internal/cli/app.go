package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rcliao/happy-days/internal/audio"
	"github.com/rcliao/happy-days/internal/config"
	"github.com/rcliao/happy-days/internal/index"
	"github.com/rcliao/happy-days/internal/logging"
	"github.com/rcliao/happy-days/internal/metrics"
	"github.com/rcliao/happy-days/internal/narration"
	"github.com/rcliao/happy-days/internal/store"
	"github.com/rcliao/happy-days/internal/transcribe"
)

// app wires the memory store and the narration pipeline around one shared
// audio resource.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *store.DirStore
	index   *index.Index
	metrics *metrics.Collector

	coord    *narration.Coordinator
	recorder *narration.Recorder
	player   *narration.Player

	closeOnce sync.Once
}

func loadConfig() (*config.Config, error) {
	path := configFlag
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path, config.Overrides{Dir: dirFlag, LogLevel: logLevelFlag})
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, devFlag)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(cfg.Dir, store.WithLogger(logger), store.WithThumbnailWidth(cfg.ThumbnailWidth))
	if err != nil {
		return nil, err
	}
	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}

	idx, err := index.Open(cfg.IndexPath, logger)
	if err != nil {
		return nil, err
	}

	opts := cfg.TranscribeOptions()
	opts.Logger = logger
	tr, err := transcribe.New(opts)
	if err != nil {
		idx.Close()
		return nil, err
	}

	collector := metrics.NewCollector("happy_days")
	collector.Memories.Set(float64(len(s.Memories())))
	sinks := narration.Sinks{narration.LogSink{Logger: logger}, idx, collector}

	layout := s.Layout()
	resource := audio.NewResource()
	coord := narration.NewCoordinator(layout, tr, sinks, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    s,
		index:    idx,
		metrics:  collector,
		coord:    coord,
		recorder: narration.NewRecorder(layout, resource, &audio.CommandCapture{Argv: cfg.Capture.Command, Logger: logger}, coord, sinks, logger),
		player:   narration.NewPlayer(layout, resource, &audio.CommandPlayback{Argv: cfg.Playback.Command}, logger),
	}, nil
}

// Close discards any active capture and waits for in-flight transcriptions.
func (a *app) Close() {
	a.closeOnce.Do(func() {
		if err := a.recorder.Close(); err != nil {
			a.logger.Warn("close recorder", zap.Error(err))
		}
		a.player.Stop()
		a.coord.Wait()
		a.coord.Close()
		a.index.Close()
		_ = a.logger.Sync()
	})
}

// fail closes the app and exits. os.Exit skips deferred calls, so commands
// call fail instead of exitErr once the app is open.
func (a *app) fail(msg string, err error) {
	a.Close()
	exitErr(msg, err)
}

func mustOpenApp(ctx context.Context) *app {
	a, err := openApp(ctx)
	if err != nil {
		exitErr("open", err)
	}
	return a
}

func isNotFound(err error) bool {
	return errors.Is(err, narration.ErrNotFound) || errors.Is(err, store.ErrNotFound)
}
