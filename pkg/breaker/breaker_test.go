package breaker

import (
	"errors"
	"testing"
	"time"
)

// fakeClock is a controllable time source for deterministic tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var errUpstream = errors.New("upstream failure")

func newTestBreaker(clock Clock) *Breaker {
	return New("test", Config{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 2,
	}, WithClock(clock))
}

func fail() error    { return errUpstream }
func succeed() error { return nil }

func TestNew_Defaults(t *testing.T) {
	b := New("defaults", Config{})

	if b.cfg.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", b.cfg.FailureThreshold)
	}
	if b.cfg.RecoveryTimeout != 60*time.Second {
		t.Errorf("RecoveryTimeout = %v, want 60s", b.cfg.RecoveryTimeout)
	}
	if b.cfg.SuccessThreshold != 2 {
		t.Errorf("SuccessThreshold = %d, want 2", b.cfg.SuccessThreshold)
	}
	if b.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", b.State())
	}
}

func TestCall_OpensAfterFailureThreshold(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		if err := b.Call(fail); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: err = %v, want upstream failure", i, err)
		}
	}

	if b.State() != StateOpen {
		t.Errorf("state = %v, want open after 5 failures", b.State())
	}

	// Further calls must be rejected without invoking fn.
	called := false
	err := b.Call(func() error {
		called = true
		return nil
	})
	if !IsOpen(err) {
		t.Errorf("err = %v, want ErrOpen", err)
	}
	if called {
		t.Error("fn was invoked while circuit open")
	}
}

func TestCall_SuccessResetsFailureCount(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 4; i++ {
		_ = b.Call(fail)
	}
	if got := b.FailureCount(); got != 4 {
		t.Fatalf("FailureCount = %d, want 4", got)
	}

	if err := b.Call(succeed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := b.FailureCount(); got != 0 {
		t.Errorf("FailureCount = %d, want 0 after success", got)
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestCall_RejectedBeforeRecoveryTimeout(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		_ = b.Call(fail)
	}

	clock.Advance(59 * time.Second)

	if err := b.Call(succeed); !IsOpen(err) {
		t.Errorf("err = %v, want ErrOpen before recovery timeout", err)
	}
}

func TestCall_ProbesAfterRecoveryTimeout(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		_ = b.Call(fail)
	}

	clock.Advance(60 * time.Second)

	called := false
	if err := b.Call(func() error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("probe call did not reach fn")
	}
	if b.State() != StateHalfOpen {
		t.Errorf("state = %v, want half-open after one probe success", b.State())
	}
}

func TestHalfOpen_ClosesAfterSuccessThreshold(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		_ = b.Call(fail)
	}
	clock.Advance(61 * time.Second)

	_ = b.Call(succeed)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}
	_ = b.Call(succeed)

	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed after 2 successes", b.State())
	}
	if b.FailureCount() != 0 || b.SuccessCount() != 0 {
		t.Errorf("counters = (%d, %d), want (0, 0)", b.FailureCount(), b.SuccessCount())
	}
}

func TestHalfOpen_FailureReopens(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		_ = b.Call(fail)
	}
	clock.Advance(61 * time.Second)

	_ = b.Call(succeed)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}

	_ = b.Call(fail)
	if b.State() != StateOpen {
		t.Errorf("state = %v, want open after probe failure", b.State())
	}
	if b.SuccessCount() != 0 {
		t.Errorf("SuccessCount = %d, want 0 after reopen", b.SuccessCount())
	}

	// The reopen refreshed lastFailure, so the old deadline no longer applies.
	clock.Advance(30 * time.Second)
	if err := b.Call(succeed); !IsOpen(err) {
		t.Errorf("err = %v, want ErrOpen before new recovery deadline", err)
	}
}

func TestReset_ForcesClosed(t *testing.T) {
	clock := newFakeClock()

	states := []func(*Breaker){
		func(b *Breaker) {}, // closed
		func(b *Breaker) { // open
			for i := 0; i < 5; i++ {
				_ = b.Call(fail)
			}
		},
		func(b *Breaker) { // half-open
			for i := 0; i < 5; i++ {
				_ = b.Call(fail)
			}
			clock.Advance(61 * time.Second)
			_ = b.Call(succeed)
		},
	}

	for i, setup := range states {
		b := newTestBreaker(clock)
		setup(b)

		b.Reset()

		if b.State() != StateClosed {
			t.Errorf("case %d: state = %v, want closed after Reset", i, b.State())
		}
		if b.FailureCount() != 0 {
			t.Errorf("case %d: FailureCount = %d, want 0 after Reset", i, b.FailureCount())
		}
	}
}

func TestOnStateChange_Hook(t *testing.T) {
	clock := newFakeClock()

	type transition struct{ from, to State }
	var seen []transition

	b := New("hooked", Config{FailureThreshold: 2, RecoveryTimeout: 10 * time.Second, SuccessThreshold: 1},
		WithClock(clock),
		OnStateChange(func(name string, from, to State) {
			seen = append(seen, transition{from, to})
		}),
	)

	_ = b.Call(fail)
	_ = b.Call(fail)
	clock.Advance(10 * time.Second)
	_ = b.Call(succeed)

	want := []transition{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestFullRecoveryCycle(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	// 5 failures trip the circuit.
	for i := 0; i < 5; i++ {
		_ = b.Call(fail)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	// Probe after 61s: one success then one failure reopens.
	clock.Advance(61 * time.Second)
	_ = b.Call(succeed)
	_ = b.Call(fail)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open after probe failure", b.State())
	}

	// Second recovery window: two successes close the circuit.
	clock.Advance(61 * time.Second)
	_ = b.Call(succeed)
	_ = b.Call(succeed)
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
	if b.FailureCount() != 0 || b.SuccessCount() != 0 {
		t.Errorf("counters = (%d, %d), want (0, 0)", b.FailureCount(), b.SuccessCount())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
