package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewMultiCommand returns the recursive multi-file loader.
func NewMultiCommand() *cobra.Command {
	var configPath, basePath string

	cmd := &cobra.Command{
		Use:   "insert-multi --basepath <dir>",
		Short: "Load every meter data file under a directory",
		Long: `insert-multi walks basepath recursively, loading every file whose name
matches --pattern on a pool of --workers concurrent loaders. Each loader
uses its own database session. A file that fails does not stop the others;
losing the database connection stops the run.

The process exits with status 1 if any file did not load completely.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := os.Stat(basePath)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", basePath)
			}
			return runMulti(cmd.Context(), cmd, configPath, basePath)
		},
	}
	addLoaderFlags(cmd, &configPath)
	cmd.Flags().StringVar(&basePath, "basepath", "", "directory to load recursively")
	_ = cmd.MarkFlagRequired("basepath")
	return cmd
}

func runMulti(ctx context.Context, cmd *cobra.Command, configPath, basePath string) error {
	e, err := setup(ctx, cmd, configPath)
	if err != nil {
		return err
	}
	defer e.close()

	summary, runErr := e.svcs.Dispatcher.Run(ctx, basePath)

	e.log.Info().
		Int("files", summary.Files).
		Int("loaded", summary.Loaded).
		Int("partial", summary.Partial).
		Int("failed", summary.Failed).
		Int("not_processed", summary.Skipped).
		Int("rows_inserted", summary.RowsInserted).
		Int("rows_failed", summary.RowsFailed).
		Dur("took", summary.Duration).
		Msg("run finished")

	e.notify(ctx, summary.Subject(), summary.Report())
	e.pushMetrics(ctx, "insert-multi")

	if runErr != nil {
		return runErr
	}
	return summary.Err()
}
