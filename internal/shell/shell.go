// Package shell binds an explore session to a line-oriented interactive
// prompt. It owns command parsing and dispatch only; all navigation
// semantics live in internal/explore.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/tracenav/tracenav/internal/explore"
	"github.com/tracenav/tracenav/internal/store"
)

const helpText = `Commands:
  runs [paged]                          list finished analysis runs
  issues [codes=[..]] [callables=[..]]
         [filenames=[..]] [paged]       list issue instances of the current run
  set_run ID                            select a run
  set_issue ID                          select an issue instance
  show                                  show the selected issue
  trace                                 show the trace for the selected issue
  next, n                               move the cursor toward the sink
  prev, p                               move the cursor toward the source
  expand                                show branch alternatives at the cursor
  branch N                              switch to branch alternative N
  help                                  show this help
  exit, quit                            leave the explorer`

// Shell reads analyst commands from a stream and dispatches them to an
// explore session, one command to completion at a time.
type Shell struct {
	session *explore.Interactive
	in      *bufio.Scanner
	out     io.Writer
	errOut  io.Writer
}

// New creates a shell over the given session and streams.
func New(session *explore.Interactive, in io.Reader, out, errOut io.Writer) *Shell {
	return &Shell{
		session: session,
		in:      bufio.NewScanner(in),
		out:     out,
		errOut:  errOut,
	}
}

// Run reads and executes commands until exit or end of input. Store failures
// abort only the in-flight command; the session stays usable.
func (s *Shell) Run() error {
	prompt := color.New(color.FgCyan).Sprint("tracenav> ")
	for {
		fmt.Fprint(s.out, prompt)
		if !s.in.Scan() {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}
		quit, err := s.dispatch(line)
		if err != nil {
			color.New(color.FgRed).Fprintf(s.errOut, "Command failed: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (s *Shell) dispatch(line string) (bool, error) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "runs":
		return false, s.session.Runs(s.paged(args))
	case "issues":
		filter, paged := s.parseFilter(args)
		return false, s.session.Issues(filter, paged)
	case "set_run":
		id, ok := s.parseID(cmd, args)
		if !ok {
			return false, nil
		}
		return false, s.session.SetRun(store.RunID(id))
	case "set_issue":
		id, ok := s.parseID(cmd, args)
		if !ok {
			return false, nil
		}
		return false, s.session.SetIssue(store.InstanceID(id))
	case "show":
		return false, s.session.Show()
	case "trace":
		return false, s.session.Trace()
	case "next", "n":
		return false, s.session.NextCursorLocation()
	case "prev", "p":
		return false, s.session.PrevCursorLocation()
	case "expand":
		return false, s.session.Expand()
	case "branch":
		pos, ok := s.parseID(cmd, args)
		if !ok {
			return false, nil
		}
		return false, s.session.Branch(int(pos))
	case "help":
		fmt.Fprintln(s.out, helpText)
		return false, nil
	case "exit", "quit":
		return true, nil
	default:
		fmt.Fprintf(s.errOut, "Unknown command %q. Type 'help' for a list.\n", cmd)
		return false, nil
	}
}

func (s *Shell) paged(args []string) bool {
	for _, a := range args {
		if a == "paged" {
			return true
		}
	}
	return false
}
