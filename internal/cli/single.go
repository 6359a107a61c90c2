package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewSingleCommand returns the single-file loader.
func NewSingleCommand() *cobra.Command {
	var configPath, path string

	cmd := &cobra.Command{
		Use:   "insert-single --filepath <file>",
		Short: "Load one meter data file",
		Long: `insert-single loads one delimited meter data file into MeterData,
registering every meter name it has not seen before in Meters.

The process exits with status 1 if any row could not be stored.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFile(path); err != nil {
				return err
			}
			return runSingle(cmd.Context(), cmd, configPath, path)
		},
	}
	addLoaderFlags(cmd, &configPath)
	cmd.Flags().StringVar(&path, "filepath", "", "data file to load")
	_ = cmd.MarkFlagRequired("filepath")
	return cmd
}

func runSingle(ctx context.Context, cmd *cobra.Command, configPath, path string) error {
	e, err := setup(ctx, cmd, configPath)
	if err != nil {
		return err
	}
	defer e.close()

	// A single file is a one-job run; archive keys are relative to its
	// directory.
	summary, err := e.svcs.Dispatcher.Process(ctx, filepath.Dir(path), []string{path})
	e.pushMetrics(ctx, "insert-single")
	if err != nil {
		return err
	}
	return summary.Err()
}
