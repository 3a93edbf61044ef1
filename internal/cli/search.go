package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/happy-days/internal/index"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search narration transcripts",
		Long:  "Find memories whose transcript contains every word of the query.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("reindex", false, "Rebuild the index from transcript files first")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	reindex, _ := cmd.Flags().GetBool("reindex")
	query := strings.Join(args, " ")

	a := mustOpenApp(cmd.Context())
	defer a.Close()

	if reindex {
		if _, err := a.index.Reindex(cmd.Context(), a.store.Layout(), a.store.Memories()); err != nil {
			a.fail("reindex", err)
		}
	}

	results, err := a.index.Search(cmd.Context(), index.SearchParams{
		Query: query,
		Limit: limit,
	})
	if err != nil {
		a.fail("search", err)
	}
	printJSON(results)
}
