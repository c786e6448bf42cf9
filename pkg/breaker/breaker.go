// Package breaker implements a consecutive-failure circuit breaker used to
// protect the upstream calendar API from repeated calls while it is failing.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed is the normal operating state. Calls pass through.
	StateClosed State = iota

	// StateOpen is the tripped state. Calls are rejected without touching
	// the upstream.
	StateOpen

	// StateHalfOpen is the recovery probe state. Calls are allowed through
	// until enough consecutive successes close the circuit again.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when the circuit is open and rejecting calls.
var ErrOpen = errors.New("breaker: circuit open")

// IsOpen reports whether err is a breaker-open rejection.
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpen)
}

// Clock is the time source used by the breaker. Production code uses the
// wall clock; tests supply a controllable clock to simulate elapsed time
// without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Config holds the circuit breaker configuration.
type Config struct {
	// FailureThreshold is the number of consecutive failures in the closed
	// state that trips the circuit.
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays open before the next
	// call is allowed through as a recovery probe.
	RecoveryTimeout time.Duration

	// SuccessThreshold is the number of consecutive successes in the
	// half-open state required to close the circuit.
	SuccessThreshold int
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 2,
	}
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock sets the time source. Useful for testing.
func WithClock(clock Clock) Option {
	return func(b *Breaker) {
		b.clock = clock
	}
}

// WithLogger sets the logger used for state transition events.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Breaker) {
		b.logger = logger
	}
}

// OnStateChange sets a hook invoked after every state transition.
func OnStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) {
		b.onStateChange = fn
	}
}

// Breaker is a consecutive-failure circuit breaker. Safe for concurrent use.
type Breaker struct {
	name          string
	cfg           Config
	clock         Clock
	logger        zerolog.Logger
	onStateChange func(name string, from, to State)

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time
}

// New creates a Breaker with the given name and configuration. Zero config
// fields fall back to the defaults.
func New(name string, cfg Config, opts ...Option) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.RecoveryTimeout == 0 {
		cfg.RecoveryTimeout = def.RecoveryTimeout
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}

	b := &Breaker{
		name:   name,
		cfg:    cfg,
		clock:  systemClock{},
		logger: zerolog.Nop(),
		state:  StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}

	breakerState.WithLabelValues(name).Set(float64(StateClosed))

	return b
}

// Call executes fn under circuit breaker protection. When the circuit is
// open, fn is not invoked and ErrOpen is returned. The outcome of fn feeds
// the breaker's failure and success bookkeeping.
func (b *Breaker) Call(fn func() error) error {
	if err := b.allow(); err != nil {
		breakerRejections.WithLabelValues(b.name).Inc()
		return err
	}

	err := fn()
	b.record(err)
	return err
}

// State returns the current state. An open circuit whose recovery timeout
// has elapsed reports (and becomes) half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// FailureCount returns the consecutive failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// SuccessCount returns the consecutive success count in the half-open state.
func (b *Breaker) SuccessCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.successes
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// Reset forces the circuit back to closed with both counters zeroed.
// Administrative and testing use only; never called on the request path.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(StateClosed)
	b.failures = 0
	b.successes = 0
}

// allow decides whether a call may proceed, transitioning open circuits to
// half-open once the recovery timeout has elapsed.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.currentState() == StateOpen {
		return ErrOpen
	}
	return nil
}

// record updates the breaker bookkeeping with the outcome of a call.
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.lastFailure = b.clock.Now()
		switch b.currentState() {
		case StateClosed:
			b.failures++
			if b.failures >= b.cfg.FailureThreshold {
				b.setState(StateOpen)
			}
		case StateHalfOpen:
			// A single probe failure reopens the circuit.
			b.successes = 0
			b.setState(StateOpen)
		}
		return
	}

	switch b.currentState() {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.failures = 0
			b.successes = 0
			b.setState(StateClosed)
		}
	}
}

// currentState returns the state, moving an expired open circuit to
// half-open. Callers must hold b.mu.
func (b *Breaker) currentState() State {
	if b.state == StateOpen && b.clock.Now().Sub(b.lastFailure) >= b.cfg.RecoveryTimeout {
		// Entering half-open resets both counters.
		b.failures = 0
		b.successes = 0
		b.setState(StateHalfOpen)
	}
	return b.state
}

// setState transitions to the given state, emitting metrics, logs and the
// state change hook. Callers must hold b.mu.
func (b *Breaker) setState(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to

	breakerState.WithLabelValues(b.name).Set(float64(to))
	breakerTransitions.WithLabelValues(b.name, from.String(), to.String()).Inc()

	b.logger.Info().
		Str("breaker", b.name).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Circuit breaker state change")

	if b.onStateChange != nil {
		b.onStateChange(b.name, from, to)
	}
}
