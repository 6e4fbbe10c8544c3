package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracenav/tracenav/internal/config"
)

var (
	cfgFile string
	dbPath  string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tracenav",
	Short: "tracenav - explore stored taint-analysis results",
	Long: `tracenav loads the output of a taint analysis into a local SQLite
database and lets an analyst walk the data-flow traces interactively:
list runs and issues, follow a trace frame by frame from source to sink,
and switch between alternative branches of the call graph.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dbPath != "" {
			cfg.Database = dbPath
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./tracenav.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "database", "", "results database path (overrides config)")
}

func GetConfig() *config.Config {
	return cfg
}
