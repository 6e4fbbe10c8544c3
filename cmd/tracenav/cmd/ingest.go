package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tracenav/tracenav/internal/ingest"
	"github.com/tracenav/tracenav/internal/store"
)

var ingestQuiet bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <document.json>",
	Short: "Load an analysis-output document into the results database",
	Long: `Load one run's worth of taint-analysis output into the database.

The document carries the run, its trace frames with leaf hop counts, and
the issues found, each with its instances and entry frames. Loading is a
single transaction; a malformed document leaves the database untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		st, err := store.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening %s: %w", cfg.Database, err)
		}
		defer st.Close()

		loader := ingest.NewLoader(st)
		loader.ShowProgress(!ingestQuiet)

		result, err := loader.LoadFile(args[0])
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", args[0], err)
		}

		color.Green("Loaded run %d", result.RunID)
		fmt.Printf("  Issues:    %d new\n", result.IssueCount)
		fmt.Printf("  Instances: %d\n", result.InstanceCount)
		fmt.Printf("  Frames:    %d\n", result.FrameCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVarP(&ingestQuiet, "quiet", "q", false, "disable the progress bar")
}
