// Package cli implements the happy-days CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dirFlag      string
	configFlag   string
	logLevelFlag string
	devFlag      bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "happy-days",
	Short: "Photo memories with spoken narration",
	Long:  "Import photos as memories, narrate them with your voice, and search what you said. Plain files on disk, transcripts in the background.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "d", "", "Memory directory (default: $HAPPY_DAYS_DIR or ~/.happy-days/memories)")
	RootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file (default: $HAPPY_DAYS_CONFIG or ~/.happy-days/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().BoolVar(&devFlag, "dev", false, "Human-readable console logs")
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// exit is swapped out in tests.
var exit = os.Exit

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	exit(1)
}
