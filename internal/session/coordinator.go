package session

// Mode selects create-new versus resume-existing dataset semantics.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeResume Mode = "resume"
)

// Plan is the session-level arithmetic gating the pipeline: which episode
// indices this run must produce. The target episode count is always a
// cumulative dataset total, never an increment.
type Plan struct {
	Mode           Mode
	TargetEpisodes int64
	ExistingTotal  int64
	StartIndex     int64
	Remaining      int64
}

// ComputePlan derives the index range for a new recording run. When the
// target is already met (remaining <= 0) the plan records nothing; callers
// must emit an explicit notice and exit successfully rather than proceed
// with a zero or negative count.
func ComputePlan(mode Mode, targetEpisodes, existingTotal int64) Plan {
	remaining := targetEpisodes - existingTotal
	if remaining < 0 {
		remaining = 0
	}
	return Plan{
		Mode:           mode,
		TargetEpisodes: targetEpisodes,
		ExistingTotal:  existingTotal,
		StartIndex:     existingTotal,
		Remaining:      remaining,
	}
}

// Indices returns the episode indices the plan assigns, in order.
func (p Plan) Indices() []int64 {
	if p.Remaining <= 0 {
		return nil
	}
	out := make([]int64, 0, p.Remaining)
	for i := p.StartIndex; i < p.StartIndex+p.Remaining; i++ {
		out = append(out, i)
	}
	return out
}

// State tracks a session through its lifecycle. Aborted is terminal and
// reachable from Validating (pre-capture mismatch) or Recording (fatal
// capture error); every successful path passes through Draining so the
// drain barrier runs before Closed.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateRecording  State = "recording"
	StateDraining   State = "draining"
	StateClosed     State = "closed"
	StateAborted    State = "aborted"
)
