package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/happy-days/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a memory and its artifacts",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	id, err := model.ParseID(args[0])
	if err != nil {
		exitErr("parse id", err)
	}

	a := mustOpenApp(cmd.Context())
	defer a.Close()

	d, err := a.store.Describe(id)
	if err != nil {
		a.fail("get", err)
	}
	printJSON(d)
}
