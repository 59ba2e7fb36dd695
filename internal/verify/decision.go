package verify

import "fmt"

// NewDecision builds the typed form of an operator moderation action. The
// router decodes the callback tag and the embedded submitter ID exactly once
// and hands everything downstream this value.
func NewDecision(action string, userID int64) (Decision, error) {
	var v Verdict
	switch action {
	case ActionApprove:
		v = VerdictApprove
	case ActionReject:
		v = VerdictReject
	default:
		return Decision{}, fmt.Errorf("unknown moderation action %q", action)
	}
	if userID == 0 {
		return Decision{}, fmt.Errorf("moderation action %q carries no user id", action)
	}
	return Decision{Verdict: v, UserID: userID}, nil
}
