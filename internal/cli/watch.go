package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/happy-days/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the search index in sync with the memory directory",
		Long:  "Reload memories and rebuild the transcript index whenever thumbnails or transcripts change on disk, e.g. when synced from another machine.",
		Run:   runWatch,
	}

	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().Duration("debounce", store.DefaultDebounce, "Quiet period before a rescan")

	RootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	debounce, _ := cmd.Flags().GetDuration("debounce")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := mustOpenApp(ctx)
	defer a.Close()

	rescan := func() {
		memories, err := a.store.Load(ctx)
		if err != nil {
			a.logger.Error("reload memories", zap.Error(err))
			return
		}
		a.metrics.Memories.Set(float64(len(memories)))
		n, err := a.index.Reindex(ctx, a.store.Layout(), memories)
		if err != nil {
			a.logger.Error("reindex", zap.Error(err))
			return
		}
		a.logger.Info("index rebuilt", zap.Int("memories", len(memories)), zap.Int("transcripts", n))
	}
	rescan()

	w, err := store.NewWatcher(a.cfg.Dir, debounce, func(c store.Change) {
		a.logger.Debug("storage changed",
			zap.Int("thumbnails", len(c.Thumbnails)),
			zap.Int("transcripts", len(c.Transcripts)))
		rescan()
	}, a.logger)
	if err != nil {
		a.fail("watch", err)
	}
	w.Start()
	defer w.Stop()

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: a.metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		a.logger.Info("serving metrics", zap.String("addr", metricsAddr))
	}

	<-ctx.Done()
}
