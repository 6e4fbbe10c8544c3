package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tracenav/tracenav/internal/explore"
	"github.com/tracenav/tracenav/internal/shell"
	"github.com/tracenav/tracenav/internal/store"
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Start the interactive trace explorer",
	Long: `Open the results database and start an interactive session.

The explorer starts scoped to the latest finished run. Use 'runs' and
'set_run' to pick another run, 'issues' to find a finding, 'set_issue'
to select it, and 'trace', 'next', 'prev', 'expand' and 'branch' to
walk its data flow. Type 'help' at the prompt for the full command list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		st, err := store.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening %s: %w", cfg.Database, err)
		}
		defer st.Close()

		session := explore.New(st, os.Stdout, os.Stderr)
		if cfg.Pager != "" {
			session.SetPager(pagerFunc(cfg.Pager))
		}
		if cfg.SourceRoot != "" {
			session.SetSourceRoot(cfg.SourceRoot)
		}
		if err := session.Setup(); err != nil {
			return err
		}

		return shell.New(session, os.Stdin, os.Stdout, os.Stderr).Run()
	},
}

// pagerFunc routes a rendered block through the configured pager command,
// falling back to plain stdout when the pager cannot run.
func pagerFunc(pager string) explore.PagerFunc {
	return func(block string) {
		parts := strings.Fields(pager)
		c := exec.Command(parts[0], parts[1:]...)
		c.Stdin = strings.NewReader(block)
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			fmt.Fprint(os.Stdout, block)
		}
	}
}

func init() {
	rootCmd.AddCommand(exploreCmd)
}
