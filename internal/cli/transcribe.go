package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/happy-days/internal/artifact"
	"github.com/rcliao/happy-days/internal/model"
	"github.com/rcliao/happy-days/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "transcribe [id]",
		Short: "Transcribe a memory's narration again",
		Long:  "Resubmit narration audio for transcription. With --missing, every memory that has narration but no transcript is submitted.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runTranscribe,
	}

	cmd.Flags().Bool("missing", false, "Transcribe all narrations without a transcript")

	RootCmd.AddCommand(cmd)
}

func runTranscribe(cmd *cobra.Command, args []string) {
	missing, _ := cmd.Flags().GetBool("missing")
	if len(args) == 0 && !missing {
		cmd.Usage()
		return
	}

	var ids []model.ID
	if len(args) == 1 {
		id, err := model.ParseID(args[0])
		if err != nil {
			exitErr("parse id", err)
		}
		ids = append(ids, id)
	}

	a := mustOpenApp(cmd.Context())
	defer a.Close()

	if missing {
		for _, m := range a.store.Memories() {
			if artifact.Exists(m.Artifacts.Audio) && !artifact.Exists(m.Artifacts.Transcript) {
				ids = append(ids, m.ID)
			}
		}
	}

	for _, id := range ids {
		if _, ok := a.store.Get(id); !ok {
			a.fail("transcribe", fmt.Errorf("%w: %s", store.ErrNotFound, id))
		}
		if err := a.coord.Retranscribe(id); err != nil {
			a.fail("transcribe", err)
		}
	}
	a.coord.Wait()

	results := make([]model.Details, 0, len(ids))
	for _, id := range ids {
		d, err := a.store.Describe(id)
		if err != nil {
			a.fail("describe", err)
		}
		results = append(results, d)
	}
	printJSON(results)
}
