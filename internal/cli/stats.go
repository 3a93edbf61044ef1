package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/happy-days/internal/artifact"
	"github.com/rcliao/happy-days/internal/index"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory and index statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

type stats struct {
	Dir             string       `json:"dir"`
	Memories        int          `json:"memories"`
	WithNarration   int          `json:"with_narration"`
	WithTranscript  int          `json:"with_transcript"`
	TranscriberMode string       `json:"transcriber"`
	Index           *index.Stats `json:"index"`
}

func runStats(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd.Context())
	defer a.Close()

	st := stats{Dir: a.cfg.Dir, TranscriberMode: a.cfg.Transcription.Provider}
	for _, m := range a.store.Memories() {
		st.Memories++
		if artifact.Exists(m.Artifacts.Audio) {
			st.WithNarration++
		}
		if artifact.Exists(m.Artifacts.Transcript) {
			st.WithTranscript++
		}
	}

	idx, err := a.index.Stats(cmd.Context())
	if err != nil {
		a.fail("stats", err)
	}
	st.Index = idx
	printJSON(st)
}
