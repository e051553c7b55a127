package workflow

// State represents a claim status in the review lifecycle
type State string

const (
	StateDraft             State = "draft"
	StateSubmitted         State = "submitted"
	StateUnderReview       State = "under_review"
	StateApproved          State = "approved"
	StateRejected          State = "rejected"
	StatePartiallyApproved State = "partially_approved"
	StatePaid              State = "paid"
	StateClosed            State = "closed"
)

// allStates lists every state in lifecycle order
var allStates = []State{
	StateDraft,
	StateSubmitted,
	StateUnderReview,
	StateApproved,
	StatePartiallyApproved,
	StateRejected,
	StatePaid,
	StateClosed,
}

var validStates = func() map[State]bool {
	m := make(map[State]bool, len(allStates))
	for _, s := range allStates {
		m[s] = true
	}
	return m
}()

var terminalStates = map[State]bool{
	StateClosed: true,
}

var decisionStates = map[State]bool{
	StateApproved:          true,
	StatePartiallyApproved: true,
	StateRejected:          true,
}

// AllStates returns every valid state in lifecycle order
func AllStates() []State {
	return append([]State(nil), allStates...)
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsDecision returns true for the states an insurer decision can produce
func (s State) IsDecision() bool {
	return decisionStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
