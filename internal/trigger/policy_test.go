package trigger

import (
	"testing"
	"time"

	"wingwatch/internal/models"
)

var start = time.Date(2026, 4, 12, 8, 30, 0, 0, time.UTC)

func motion(changed bool) models.MotionSignal {
	return models.MotionSignal{Changed: changed, Timestamp: start}
}

func TestPolicyTriggersOncePerCooldown(t *testing.T) {
	p := NewPolicy(5 * time.Second)

	if !p.ShouldInfer(motion(true), start) {
		t.Fatal("first motion signal did not trigger")
	}

	// Continuous motion inside the cooldown window stays suppressed.
	for i := 1; i < 5; i++ {
		now := start.Add(time.Duration(i) * time.Second)
		if p.ShouldInfer(motion(true), now) {
			t.Fatalf("motion at +%ds triggered during cooldown", i)
		}
	}
}

func TestPolicyNoMotionNoTrigger(t *testing.T) {
	p := NewPolicy(5 * time.Second)

	for i := 0; i < 10; i++ {
		now := start.Add(time.Duration(i) * time.Second)
		if p.ShouldInfer(motion(false), now) {
			t.Fatalf("quiet signal at +%ds triggered", i)
		}
	}
}

func TestPolicyRetriggersAfterCooldown(t *testing.T) {
	p := NewPolicy(5 * time.Second)

	if !p.ShouldInfer(motion(true), start) {
		t.Fatal("first motion signal did not trigger")
	}
	if p.ShouldInfer(motion(true), start.Add(4*time.Second)) {
		t.Fatal("triggered before cooldown elapsed")
	}
	// Cooldown boundary is inclusive: exactly cooldown after the original
	// trigger, motion triggers again.
	if !p.ShouldInfer(motion(true), start.Add(5*time.Second)) {
		t.Fatal("motion at the cooldown boundary did not trigger")
	}
}

func TestPolicyCooldownRunsFromOriginalTrigger(t *testing.T) {
	p := NewPolicy(5 * time.Second)

	if !p.ShouldInfer(motion(true), start) {
		t.Fatal("first motion signal did not trigger")
	}
	// Motion at +4s must not extend the window: +5s still re-triggers.
	if p.ShouldInfer(motion(true), start.Add(4*time.Second)) {
		t.Fatal("triggered during cooldown")
	}
	if !p.ShouldInfer(motion(true), start.Add(5*time.Second)) {
		t.Fatal("cooldown was extended by motion inside the window")
	}
}

func TestPolicyCooldownExpiryWithoutMotion(t *testing.T) {
	p := NewPolicy(5 * time.Second)

	if !p.ShouldInfer(motion(true), start) {
		t.Fatal("first motion signal did not trigger")
	}
	// Quiet signal after expiry returns the policy to Idle without firing.
	if p.ShouldInfer(motion(false), start.Add(6*time.Second)) {
		t.Fatal("quiet signal after cooldown triggered")
	}
	if p.Cooling() {
		t.Error("policy still cooling after expiry")
	}
	// The next motion fires immediately.
	if !p.ShouldInfer(motion(true), start.Add(7*time.Second)) {
		t.Fatal("motion after returning to idle did not trigger")
	}
}

func TestPolicySustainedMotionInferenceCount(t *testing.T) {
	// Ten seconds of per-second motion with a 5s cooldown comes out to
	// exactly two triggers, at +0s and +5s.
	p := NewPolicy(5 * time.Second)

	triggers := 0
	for i := 0; i < 10; i++ {
		now := start.Add(time.Duration(i) * time.Second)
		if p.ShouldInfer(motion(true), now) {
			triggers++
		}
	}
	if triggers != 2 {
		t.Errorf("sustained motion produced %d triggers, want 2", triggers)
	}
}

func TestPolicyZeroCooldown(t *testing.T) {
	p := NewPolicy(0)

	for i := 0; i < 3; i++ {
		now := start.Add(time.Duration(i) * time.Second)
		if !p.ShouldInfer(motion(true), now) {
			t.Fatalf("motion at +%ds did not trigger with zero cooldown", i)
		}
	}
}
