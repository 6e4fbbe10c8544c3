package shell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tracenav/tracenav/internal/store"
)

// parseFilter builds an issue filter from key=value arguments. List-valued
// fields must be bracketed ("codes=[1000,1001]"); a bare value is the
// classic "should be a list" input error and the field is treated as no
// filter. Unknown keys are reported and skipped.
func (s *Shell) parseFilter(args []string) (store.IssueFilter, bool) {
	var filter store.IssueFilter
	paged := false

	for _, arg := range args {
		if arg == "paged" {
			paged = true
			continue
		}

		key, value, found := strings.Cut(arg, "=")
		if !found {
			fmt.Fprintf(s.errOut, "Unknown argument %q.\n", arg)
			continue
		}
		switch key {
		case "codes":
			items, ok := s.parseList(key, value)
			if !ok {
				continue
			}
			for _, item := range items {
				code, err := strconv.Atoi(item)
				if err != nil {
					fmt.Fprintf(s.errOut, "%q is not a valid code.\n", item)
					continue
				}
				filter.Codes = append(filter.Codes, code)
			}
		case "callables":
			if items, ok := s.parseList(key, value); ok {
				filter.Callables = items
			}
		case "filenames":
			if items, ok := s.parseList(key, value); ok {
				filter.Filenames = items
			}
		default:
			fmt.Fprintf(s.errOut, "Unknown argument %q.\n", arg)
		}
	}
	return filter, paged
}

// parseList splits a bracketed comma-separated value. A non-bracketed value
// reports "'key' should be a list." and returns ok=false.
func (s *Shell) parseList(key, value string) ([]string, bool) {
	if !strings.HasPrefix(value, "[") || !strings.HasSuffix(value, "]") {
		fmt.Fprintf(s.errOut, "'%s' should be a list.\n", key)
		return nil, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
	if inner == "" {
		return nil, true
	}
	var items []string
	for _, item := range strings.Split(inner, ",") {
		items = append(items, strings.TrimSpace(item))
	}
	return items, true
}

// parseID parses the single integer argument of a command.
func (s *Shell) parseID(cmd string, args []string) (int64, bool) {
	if len(args) != 1 {
		fmt.Fprintf(s.errOut, "Usage: %s N\n", cmd)
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(s.errOut, "%q is not a number.\n", args[0])
		return 0, false
	}
	return id, true
}
