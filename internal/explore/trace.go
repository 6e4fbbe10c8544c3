package explore

import (
	"github.com/tracenav/tracenav/internal/store"
)

// TraceTuple is one position of the assembled trace path: a frame plus the
// number of branch candidates that existed at that hop. Missing tuples stand
// in for a continuation the store never recorded; they render inline but are
// not valid branch targets.
type TraceTuple struct {
	Frame    store.TraceFrame
	Branches int
	Missing  bool
}

// assembleTrace walks both flow directions from the instance's entry frames
// and merges the walks into one ordered path: the upstream (postcondition)
// chain reversed so index 0 sits nearest the source leaf, then a synthesized
// root tuple for the issue's own callable, then the downstream
// (precondition) chain descending toward the sink leaf. The returned root
// index is len(upstream chain), the default cursor position.
func assembleTrace(sess *store.Session, nav *navigator, row *store.InstanceRow) ([]TraceTuple, int, error) {
	postSeeds, err := sess.EntryFrames(row.Instance.ID, store.Postcondition)
	if err != nil {
		return nil, 0, err
	}
	preSeeds, err := sess.EntryFrames(row.Instance.ID, store.Precondition)
	if err != nil {
		return nil, 0, err
	}

	postNav, err := nav.navigate(postSeeds, 0)
	if err != nil {
		return nil, 0, err
	}
	preNav, err := nav.navigate(preSeeds, 0)
	if err != nil {
		return nil, 0, err
	}

	upstream := makeTuples(postNav)
	reverseTuples(upstream)
	downstream := makeTuples(preNav)

	tuples := make([]TraceTuple, 0, len(upstream)+1+len(downstream))
	tuples = append(tuples, upstream...)
	tuples = append(tuples, rootTuple(row, preSeeds, postSeeds))
	tuples = append(tuples, downstream...)
	return tuples, len(upstream), nil
}

// rootTuple synthesizes the path element for the issue's own callable. Its
// display fields come from the caller side of the first sink-side entry
// frame, falling back to the source side, then to the instance itself when
// no entry frames exist at all.
func rootTuple(row *store.InstanceRow, preSeeds, postSeeds []store.TraceFrame) TraceTuple {
	var seed *store.TraceFrame
	switch {
	case len(preSeeds) > 0:
		seed = &preSeeds[0]
	case len(postSeeds) > 0:
		seed = &postSeeds[0]
	default:
		return TraceTuple{
			Frame: store.TraceFrame{
				Caller:         row.Issue.Callable,
				Callee:         row.Issue.Callable,
				CalleePort:     "root",
				CalleeLocation: row.Instance.Location,
				Filename:       row.Instance.Filename,
				RunID:          row.Instance.RunID,
			},
			Branches: 1,
		}
	}

	return TraceTuple{
		Frame: store.TraceFrame{
			Kind:           seed.Kind,
			Caller:         seed.Caller,
			CallerPort:     seed.CallerPort,
			Callee:         seed.Caller,
			CalleePort:     seed.CallerPort,
			CalleeLocation: seed.CalleeLocation,
			Filename:       seed.Filename,
			RunID:          seed.RunID,
		},
		Branches: 1,
	}
}

func makeTuples(steps []step) []TraceTuple {
	tuples := make([]TraceTuple, len(steps))
	for j, st := range steps {
		tuples[j] = TraceTuple{
			Frame:    st.frame,
			Branches: st.branches,
			Missing:  st.frame.Caller == "",
		}
	}
	return tuples
}

func reverseTuples(tuples []TraceTuple) {
	for a, b := 0, len(tuples)-1; a < b; a, b = a+1, b-1 {
		tuples[a], tuples[b] = tuples[b], tuples[a]
	}
}
