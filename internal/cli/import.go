package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/happy-days/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import <image>...",
		Short: "Import images as new memories",
		Long:  "Import JPEG, PNG or GIF images. Each becomes a memory with a stored JPEG copy and a thumbnail.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runImport,
	}

	cmd.Flags().IntP("jobs", "j", 4, "Images decoded in parallel")

	RootCmd.AddCommand(cmd)
}

type importResult struct {
	Path   string        `json:"path"`
	Memory *model.Memory `json:"memory"`
}

func runImport(cmd *cobra.Command, args []string) {
	jobs, _ := cmd.Flags().GetInt("jobs")
	if jobs < 1 {
		jobs = 1
	}

	a := mustOpenApp(cmd.Context())
	defer a.Close()

	results := make([]importResult, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for i, path := range args {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			mem, err := a.store.Create(ctx, data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = importResult{Path: path, Memory: mem}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.fail("import", err)
	}

	printJSON(results)
}
