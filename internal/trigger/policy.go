// Package trigger rate-limits inference: motion may fire continuously, the
// expensive model run may not.
package trigger

import (
	"time"

	"wingwatch/internal/models"
)

type state int

const (
	stateIdle state = iota
	stateCooling
)

// Policy is a two-state machine. Idle: the first changed signal triggers and
// starts the cooldown. Cooling: everything is suppressed until the cooldown
// measured from the original trigger time elapses; continued motion does not
// extend it.
type Policy struct {
	cooldown    time.Duration
	state       state
	lastTrigger time.Time
}

func NewPolicy(cooldown time.Duration) *Policy {
	return &Policy{cooldown: cooldown}
}

// ShouldInfer reports whether inference should run for this signal. It
// returns true exactly once per Idle-to-Cooling transition.
func (p *Policy) ShouldInfer(signal models.MotionSignal, now time.Time) bool {
	if p.state == stateCooling {
		if now.Sub(p.lastTrigger) >= p.cooldown {
			p.state = stateIdle
		} else {
			return false
		}
	}

	if signal.Changed {
		p.state = stateCooling
		p.lastTrigger = now
		return true
	}
	return false
}

// Cooling reports whether the policy is currently suppressing triggers.
func (p *Policy) Cooling() bool {
	return p.state == stateCooling
}
