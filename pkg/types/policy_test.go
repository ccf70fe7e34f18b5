package types

import "testing"

func TestStaticTransitionPolicyValidate(t *testing.T) {
	policy := DefaultTransitionPolicy()

	if err := policy.Validate(StatusUnread, StatusApproved); err != nil {
		t.Fatalf("expected unread->approved to be allowed: %v", err)
	}

	if err := policy.Validate(StatusUnread, StatusDenied); err != nil {
		t.Fatalf("expected unread->denied allowed: %v", err)
	}

	if err := policy.Validate(StatusApproved, StatusDenied); err == nil {
		t.Fatalf("expected approved->denied to be rejected")
	}

	if err := policy.Validate(StatusDenied, StatusUnread); err == nil {
		t.Fatalf("expected denied->unread to be rejected")
	}
}

func TestStaticTransitionPolicyAllowedTargets(t *testing.T) {
	policy := DefaultTransitionPolicy()
	targets := policy.AllowedTargets(StatusUnread)
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets for unread, got %d", len(targets))
	}
	if !policy.Terminal(StatusApproved) || !policy.Terminal(StatusDenied) {
		t.Fatalf("expected approved and denied to be terminal")
	}
	if policy.Terminal(StatusUnread) {
		t.Fatalf("expected unread to allow transitions")
	}
}
