package session

// State is one node of the per-directory submission state machine.
type State string

const (
	StatePending             State = "PENDING"
	StateQuickReject         State = "QUICK_REJECT"
	StateQuickPass           State = "QUICK_PASS"
	StateNeedsDeepCheck      State = "NEEDS_DEEP_CHECK"
	StateDeepCheck           State = "DEEP_CHECK"
	StateRejected            State = "REJECTED"
	StateApproved            State = "APPROVED"
	StateLoadPage            State = "LOAD_PAGE"
	StateAnalyze             State = "ANALYZE"
	StateSkipNeedsHuman      State = "SKIP_NEEDS_HUMAN"
	StateSkipDirective       State = "SKIP_DIRECTIVE"
	StateFill                State = "FILL"
	StateSubmitClick         State = "SUBMIT_CLICK"
	StateAssessResult        State = "ASSESS_RESULT"
	StateSuccess             State = "SUCCESS"
	StatePendingVerification State = "PENDING_VERIFICATION"
	StateNeedsMoreSteps      State = "NEEDS_MORE_STEPS"
	StateFailed              State = "FAILED"
	StateSkipped             State = "SKIPPED"
)

// IsTerminal reports whether the state ends the session for a directory.
// Each terminal state produces exactly one ledger append.
func (s State) IsTerminal() bool {
	switch s {
	case StateSuccess, StatePendingVerification, StateRejected, StateFailed,
		StateSkipped, StateSkipNeedsHuman, StateSkipDirective:
		return true
	}
	return false
}
