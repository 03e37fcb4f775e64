// Package circuitbreaker stops calling a provider that keeps failing.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/creator-sync/internal/logging"
)

// State represents the circuit breaker state
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config configures a circuit breaker
type Config struct {
	Name             string
	MaxFailures      int           // consecutive failures before opening
	Timeout          time.Duration // open duration before a trial call
	HalfOpenMaxCalls int           // successful trial calls needed to close
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) *Config {
	return &Config{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker implements the circuit breaker pattern
type CircuitBreaker struct {
	cfg Config
	now func() time.Time

	mu               sync.Mutex
	state            State
	consecutiveFails int
	halfOpenOK       int
	halfOpenInFlight bool
	openedAt         time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config *Config) *CircuitBreaker {
	return &CircuitBreaker{cfg: *config, now: time.Now, state: StateClosed}
}

// Execute runs fn unless the circuit is open. Context cancellation is not
// counted as a provider failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn()
	if err != nil && ctx.Err() != nil {
		cb.mu.Lock()
		cb.halfOpenInFlight = false
		cb.mu.Unlock()
		return err
	}
	cb.afterRequest(err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Timeout {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.halfOpenOK = 0
		logging.WithField("circuitBreaker", cb.cfg.Name).Info("Circuit breaker transitioning to half-open")
		fallthrough
	case StateHalfOpen:
		// one trial call at a time
		if cb.halfOpenInFlight {
			return ErrCircuitOpen
		}
		cb.halfOpenInFlight = true
	}
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	wasHalfOpen := cb.state == StateHalfOpen
	cb.halfOpenInFlight = false

	if err == nil {
		cb.consecutiveFails = 0
		if wasHalfOpen {
			cb.halfOpenOK++
			if cb.halfOpenOK >= cb.cfg.HalfOpenMaxCalls {
				cb.state = StateClosed
				logging.WithField("circuitBreaker", cb.cfg.Name).Info("Circuit breaker closed after successful recovery")
			}
		}
		return
	}

	cb.consecutiveFails++
	if wasHalfOpen || cb.consecutiveFails >= cb.cfg.MaxFailures {
		cb.state = StateOpen
		cb.openedAt = cb.now()
		logging.WithFields(map[string]interface{}{
			"circuitBreaker":   cb.cfg.Name,
			"consecutiveFails": cb.consecutiveFails,
		}).Warn("Circuit breaker opened due to failures")
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset manually resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.consecutiveFails = 0
	cb.halfOpenOK = 0
	cb.halfOpenInFlight = false
}

// Manager hands out one circuit breaker per name
type Manager struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	config   func(name string) *Config
}

// NewManager creates a manager that builds breakers from config. A nil config uses DefaultConfig.
func NewManager(config func(name string) *Config) *Manager {
	if config == nil {
		config = DefaultConfig
	}
	return &Manager{breakers: make(map[string]*CircuitBreaker), config: config}
}

// Get returns the breaker for name, creating it on first use
func (m *Manager) Get(name string) *CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cb, ok := m.breakers[name]; ok {
		return cb
	}
	cb := NewCircuitBreaker(m.config(name))
	m.breakers[name] = cb
	return cb
}

// States returns a snapshot of every breaker's state
func (m *Manager) States() map[string]State {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]State, len(m.breakers))
	for name, cb := range m.breakers {
		out[name] = cb.GetState()
	}
	return out
}
