package explore

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tracenav/tracenav/internal/store"
)

const (
	cursorMarker = " --> "
	cursorBlank  = "     "

	headerBranches = "[branches]"
	headerCallable = "[callable]"
	headerPort     = "[port]"
	headerLocation = "[location]"
)

// renderTrace prints the assembled path as a fixed-column table: one row per
// tuple with the cursor row marked, missing placeholders as literal lines.
// A non-empty sourceRoot is prepended to every filename.
func renderTrace(w io.Writer, tuples []TraceTuple, cursor int, sourceRoot string) {
	branchWidth := len(headerBranches) + 1
	callableWidth := len(headerCallable) + 1
	portWidth := len(headerPort) + 1
	for _, t := range tuples {
		if t.Missing {
			continue
		}
		branchWidth = maxWidth(branchWidth, branchCell(t))
		callableWidth = maxWidth(callableWidth, t.Frame.Callee)
		portWidth = maxWidth(portWidth, t.Frame.CalleePort)
	}

	fmt.Fprintf(w, "%s%-*s%-*s%-*s%s\n", cursorBlank,
		branchWidth, headerBranches, callableWidth, headerCallable,
		portWidth, headerPort, headerLocation)

	for idx, t := range tuples {
		prefix := cursorBlank
		if idx == cursor {
			prefix = cursorMarker
		}
		if t.Missing {
			fmt.Fprintf(w, "%sMissing trace frame: %s:%s\n",
				prefix, t.Frame.Callee, t.Frame.CalleePort)
			continue
		}
		fmt.Fprintf(w, "%s%-*s%-*s%-*s%s\n", prefix,
			branchWidth, branchCell(t),
			callableWidth, t.Frame.Callee,
			portWidth, t.Frame.CalleePort,
			frameLocation(&t.Frame, sourceRoot))
	}
}

// renderBranches prints the branch candidates at a position, each with its
// reachable leaves and remaining hop counts. The active candidate is marked
// "[*]"; the rest carry their switch position.
func renderBranches(w io.Writer, branches []store.TraceFrame, hops map[store.FrameID][]store.LeafHop, activeID store.FrameID, sourceRoot string) {
	for idx, f := range branches {
		marker := "[" + strconv.Itoa(idx) + "]"
		if f.ID == activeID {
			marker = "[*]"
		}
		fmt.Fprintf(w, "%s %s : %s\n", marker, f.Callee, f.CalleePort)
		for _, h := range hops[f.ID] {
			length := h.TraceLength
			if length == store.TraceLengthUnknown {
				length = 0
			}
			fmt.Fprintf(w, "        [%d hops: %s]\n", length, h.Contents)
		}
		fmt.Fprintf(w, "        [%s]\n", frameLocation(&f, sourceRoot))
	}
}

// renderInstances formats issue instances as the listing/show block.
func renderInstances(rows []store.InstanceRow) string {
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "Issue %d\n", r.Instance.ID)
		fmt.Fprintf(&b, "    Code: %d\n", r.Issue.Code)
		fmt.Fprintf(&b, "    Message: %s\n", r.Message)
		fmt.Fprintf(&b, "    Callable: %s\n", r.Issue.Callable)
		fmt.Fprintf(&b, "    Location: %s:%s\n", r.Instance.Filename, r.Instance.Location)
		b.WriteString("\n")
	}
	return b.String()
}

// renderRuns formats the run listing block.
func renderRuns(runs []store.Run) string {
	var b strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&b, "Run %d\n", r.ID)
		fmt.Fprintf(&b, "    Date: %s\n", r.Date.Format(time.RFC3339))
		b.WriteString("\n")
	}
	return b.String()
}

func branchCell(t TraceTuple) string {
	if t.Branches > 1 {
		return "+ " + strconv.Itoa(t.Branches)
	}
	return ""
}

func frameLocation(f *store.TraceFrame, sourceRoot string) string {
	filename := f.Filename
	if sourceRoot != "" {
		filename = filepath.Join(sourceRoot, filename)
	}
	return filename + ":" + f.CalleeLocation.String()
}

func maxWidth(width int, cell string) int {
	if len(cell)+1 > width {
		return len(cell) + 1
	}
	return width
}
