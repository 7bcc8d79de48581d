package types

// RunState is the orchestrator's position in a run.
type RunState string

const (
	RunStateInit      RunState = "INIT"
	RunStateProbing   RunState = "PROBING"
	RunStateAbort     RunState = "ABORT"
	RunStateRunning   RunState = "RUNNING"
	RunStateReporting RunState = "REPORTING"
	RunStateDone      RunState = "DONE"
)

var runStateTransitions = map[RunState][]RunState{
	RunStateInit:      {RunStateProbing},
	RunStateProbing:   {RunStateAbort, RunStateRunning},
	RunStateRunning:   {RunStateReporting},
	RunStateReporting: {RunStateDone},
}

// CanTransition reports whether next is a legal successor of s.
// ABORT and DONE are terminal.
func (s RunState) CanTransition(next RunState) bool {
	for _, allowed := range runStateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s RunState) Terminal() bool {
	return s == RunStateAbort || s == RunStateDone
}
