package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/happy-days/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories, oldest first",
		Run:   runList,
	}

	cmd.Flags().IntP("limit", "l", 0, "Only the newest N memories")
	cmd.Flags().Bool("ids-only", false, "Only output memory ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	a := mustOpenApp(cmd.Context())
	defer a.Close()

	memories := a.store.Memories()
	if limit > 0 && len(memories) > limit {
		memories = memories[len(memories)-limit:]
	}

	if idsOnly {
		for _, m := range memories {
			fmt.Println(m.ID)
		}
		return
	}

	details := make([]model.Details, 0, len(memories))
	for _, m := range memories {
		d, err := a.store.Describe(m.ID)
		if err != nil {
			a.fail("describe "+m.ID.String(), err)
		}
		details = append(details, d)
	}
	printJSON(details)
}
