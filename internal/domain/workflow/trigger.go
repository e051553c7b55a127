package workflow

// Trigger represents an event that can cause a state transition.
// Each trigger names exactly one edge family so the same public operation
// (e.g. returning a claim) maps to a distinct trigger per source stage.
type Trigger string

const (
	TriggerSubmit           Trigger = "SUBMIT"
	TriggerForward          Trigger = "FORWARD"
	TriggerReassign         Trigger = "REASSIGN"
	TriggerApprove          Trigger = "APPROVE"
	TriggerPartiallyApprove Trigger = "PARTIALLY_APPROVE"
	TriggerReject           Trigger = "REJECT"
	TriggerReturnToHR       Trigger = "RETURN_TO_HR"
	TriggerReturnToEmployee Trigger = "RETURN_TO_EMPLOYEE"
	TriggerMarkPaid         Trigger = "MARK_PAID"
	TriggerClose            Trigger = "CLOSE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// DecisionTrigger maps a decision state to the trigger that produces it
func DecisionTrigger(decision State) (Trigger, bool) {
	switch decision {
	case StateApproved:
		return TriggerApprove, true
	case StatePartiallyApproved:
		return TriggerPartiallyApprove, true
	case StateRejected:
		return TriggerReject, true
	default:
		return "", false
	}
}
