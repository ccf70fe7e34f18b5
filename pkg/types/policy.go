package types

import (
	"fmt"
)

// ErrTransitionNotAllowed reports that the target status is not reachable
// from the current status.
var ErrTransitionNotAllowed = fmt.Errorf("go-moderation: status transition not allowed")

// TransitionPolicy validates queue status transitions.
type TransitionPolicy interface {
	Validate(current, target Status) error
	AllowedTargets(current Status) []Status
}

// StaticTransitionPolicy enforces a fixed transition graph.
type StaticTransitionPolicy struct {
	graph map[Status]map[Status]struct{}
}

// NewStaticTransitionPolicy creates a policy from a transition graph.
func NewStaticTransitionPolicy(graph map[Status][]Status) *StaticTransitionPolicy {
	internal := make(map[Status]map[Status]struct{}, len(graph))
	for from, targets := range graph {
		targetSet := make(map[Status]struct{}, len(targets))
		for _, to := range targets {
			if to == "" {
				continue
			}
			targetSet[to] = struct{}{}
		}
		internal[from] = targetSet
	}
	return &StaticTransitionPolicy{graph: internal}
}

// DefaultTransitionPolicy returns the moderation state machine: unread items
// can be approved or denied, both of which are terminal.
func DefaultTransitionPolicy() *StaticTransitionPolicy {
	return NewStaticTransitionPolicy(map[Status][]Status{
		StatusUnread: {StatusApproved, StatusDenied},
	})
}

// Validate ensures the target is allowed from the current status.
func (p *StaticTransitionPolicy) Validate(current, target Status) error {
	if current == "" || target == "" {
		return ErrTransitionNotAllowed
	}
	targets, ok := p.graph[current]
	if !ok {
		return ErrTransitionNotAllowed
	}
	if _, ok := targets[target]; !ok {
		return ErrTransitionNotAllowed
	}
	return nil
}

// AllowedTargets returns the slice of valid targets from the provided status.
func (p *StaticTransitionPolicy) AllowedTargets(current Status) []Status {
	targets := p.graph[current]
	if len(targets) == 0 {
		return nil
	}
	out := make([]Status, 0, len(targets))
	for target := range targets {
		out = append(out, target)
	}
	return out
}

// Terminal reports whether no transition leaves the status.
func (p *StaticTransitionPolicy) Terminal(current Status) bool {
	return len(p.graph[current]) == 0
}
