package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

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

// CircuitBreaker fails calls fast once too many failures were seen inside the
// sliding window. After timeout a single trial call is let through; its
// outcome closes or reopens the breaker. A nil *CircuitBreaker runs every call.
type CircuitBreaker struct {
	maxFailures int
	window      time.Duration
	timeout     time.Duration

	mu          sync.Mutex
	state       State
	failures    []time.Time
	openedAt    time.Time
	trialActive bool

	// Ignore reports errors that belong to normal operation, e.g. not found.
	Ignore   func(error) bool
	OnChange func(from, to State)

	now func() time.Time
}

func NewCircuitBreaker(maxFailures int, timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreakerWithWindow(maxFailures, timeout, 60*time.Second)
}

func NewCircuitBreakerWithWindow(maxFailures int, timeout time.Duration, window time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: maxFailures,
		window:      window,
		timeout:     timeout,
		state:       StateClosed,
		failures:    make([]time.Time, 0),
		now:         time.Now,
	}
}

// Execute runs fn unless the breaker is open. fn runs without holding the lock.
// A panic in fn counts as a failure and is re-raised.
func (cb *CircuitBreaker) Execute(fn func() error) (err error) {
	if cb == nil || cb.maxFailures <= 0 {
		return fn()
	}
	trial, err := cb.allow()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			cb.record(trial, true)
			panic(r)
		}
		cb.record(trial, cb.isFailure(err))
	}()
	return fn()
}

func (cb *CircuitBreaker) isFailure(err error) bool {
	return err != nil && (cb.Ignore == nil || !cb.Ignore(err))
}

// allow admits a call. trial is true for the single call let through while
// half-open; only that call may move the breaker out of half-open.
func (cb *CircuitBreaker) allow() (trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.timeout {
			return false, ErrOpen
		}
		cb.setState(StateHalfOpen)
		cb.trialActive = true
		return true, nil
	case StateHalfOpen:
		if cb.trialActive {
			return false, ErrOpen
		}
		cb.trialActive = true
		return true, nil
	default:
		return false, nil
	}
}

func (cb *CircuitBreaker) record(trial, failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()

	if trial {
		cb.trialActive = false
		cb.failures = cb.failures[:0]
		if failed {
			cb.openedAt = now
			cb.setState(StateOpen)
		} else {
			cb.setState(StateClosed)
		}
		return
	}

	// calls admitted before the breaker opened say nothing about the trial
	if cb.state != StateClosed {
		return
	}

	if !failed {
		cb.cleanOldFailures(now)
		return
	}

	cb.failures = append(cb.failures, now)
	cb.cleanOldFailures(now)
	if len(cb.failures) >= cb.maxFailures {
		cb.failures = cb.failures[:0]
		cb.openedAt = now
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	cb.state = to
	if from != to && cb.OnChange != nil {
		cb.OnChange(from, to)
	}
}

func (cb *CircuitBreaker) cleanOldFailures(now time.Time) {
	cutoff := now.Add(-cb.window)
	i := 0
	for i < len(cb.failures) && !cb.failures[i].After(cutoff) {
		i++
	}
	if i > 0 {
		cb.failures = append(cb.failures[:0], cb.failures[i:]...)
	}
}

func (cb *CircuitBreaker) GetState() State {
	if cb == nil {
		return StateClosed
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
