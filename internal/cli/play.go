package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/happy-days/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "play <id>",
		Short: "Play a memory's narration",
		Args:  cobra.ExactArgs(1),
		Run:   runPlay,
	}

	RootCmd.AddCommand(cmd)
}

func runPlay(cmd *cobra.Command, args []string) {
	id, err := model.ParseID(args[0])
	if err != nil {
		exitErr("parse id", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := mustOpenApp(ctx)
	defer a.Close()

	done, err := a.player.Play(ctx, id)
	if err != nil {
		if isNotFound(err) {
			a.logger.Info("no narration to play")
			return
		}
		a.fail("play", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		a.player.Stop()
		<-done
	}
}
