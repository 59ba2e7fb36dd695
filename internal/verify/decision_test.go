package verify

import "testing"

func TestNewDecision(t *testing.T) {
	d, err := NewDecision(ActionApprove, 42)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if d.Verdict != VerdictApprove || d.UserID != 42 {
		t.Errorf("unexpected decision: %+v", d)
	}

	d, err = NewDecision(ActionReject, 42)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if d.Verdict != VerdictReject {
		t.Errorf("unexpected verdict: %q", d.Verdict)
	}

	if _, err := NewDecision("promote", 42); err == nil {
		t.Error("unknown action must be rejected")
	}
	if _, err := NewDecision(ActionApprove, 0); err == nil {
		t.Error("zero user id must be rejected")
	}
}
