package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/happy-days/internal/model"
	"github.com/rcliao/happy-days/internal/narration"
	"github.com/rcliao/happy-days/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "narrate <id>",
		Short: "Record narration for a memory",
		Long: `Record narration for a memory with the configured capture command.
Press Enter to save the recording, Ctrl-C to discard it. A saved recording
replaces the memory's previous narration and is transcribed before exit.`,
		Args: cobra.ExactArgs(1),
		Run:  runNarrate,
	}

	cmd.Flags().Duration("duration", 0, "Stop and save automatically after this long")

	RootCmd.AddCommand(cmd)
}

func runNarrate(cmd *cobra.Command, args []string) {
	duration, _ := cmd.Flags().GetDuration("duration")
	id, err := model.ParseID(args[0])
	if err != nil {
		exitErr("parse id", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := mustOpenApp(ctx)
	if _, ok := a.store.Get(id); !ok {
		a.fail("narrate", fmt.Errorf("%w: %s", store.ErrNotFound, id))
	}

	// The capture process outlives ctx so Ctrl-C can end it cleanly.
	if err := a.recorder.Start(context.WithoutCancel(ctx), id); err != nil {
		a.fail("start recording", err)
	}
	fmt.Fprintln(os.Stderr, "recording... press Enter to save, Ctrl-C to discard")

	enter := make(chan struct{})
	go func() {
		if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err == nil {
			close(enter)
		}
	}()
	var timeout <-chan time.Time
	if duration > 0 {
		timeout = time.After(duration)
	}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	save := false
wait:
	for {
		select {
		case <-enter:
			save = true
			break wait
		case <-timeout:
			save = true
			break wait
		case <-ctx.Done():
			break wait
		case <-ticker.C:
			if state, _ := a.recorder.State(); state == narration.Idle {
				a.fail("narrate", narration.ErrCapture)
			}
		}
	}

	if err := a.recorder.Stop(save); err != nil {
		a.fail("stop recording", err)
	}
	if save {
		fmt.Fprintln(os.Stderr, "saved, transcribing...")
	} else {
		fmt.Fprintln(os.Stderr, "discarded")
	}

	a.coord.Wait()
	d, err := a.store.Describe(id)
	if err != nil {
		a.fail("describe", err)
	}
	a.Close()
	printJSON(d)
}
