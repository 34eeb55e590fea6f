package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/LerianStudio/lib-payscore/payscore/log"
	"github.com/sony/gobreaker"
)

// Manager owns one breaker per service name.
type Manager struct {
	mu        sync.RWMutex
	breakers  map[string]*gobreaker.CircuitBreaker
	configs   map[string]Config
	listeners []StateChangeListener
	logger    log.Logger
}

// NewManager returns an empty manager. A nil logger discards output.
func NewManager(logger log.Logger) *Manager {
	return &Manager{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		configs:  make(map[string]Config),
		logger:   log.OrNop(logger),
	}
}

// Ensure creates the breaker for serviceName with cfg unless it already exists.
func (m *Manager) Ensure(serviceName string, cfg Config) {
	m.mu.RLock()
	_, ok := m.breakers[serviceName]
	m.mu.RUnlock()

	if ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.breakers[serviceName]; ok {
		return
	}

	m.breakers[serviceName] = m.newBreaker(serviceName, cfg)
	m.configs[serviceName] = cfg

	m.logger.Log(context.Background(), log.LevelDebug, "circuit breaker created", log.String("service", serviceName))
}

func (m *Manager) newBreaker(serviceName string, cfg Config) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        serviceName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: readyToTrip(cfg),
		OnStateChange: func(_ string, from, to gobreaker.State) {
			m.handleStateChange(serviceName, from, to)
		},
	})
}

// Execute runs fn through the breaker of serviceName, creating it with
// DefaultConfig on first use. Rejected calls return an error wrapping ErrOpen.
func (m *Manager) Execute(ctx context.Context, serviceName string, fn func() (any, error)) (any, error) {
	m.Ensure(serviceName, DefaultConfig())

	m.mu.RLock()
	breaker := m.breakers[serviceName]
	m.mu.RUnlock()

	result, err := breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		m.logger.Log(ctx, log.LevelWarn, "circuit breaker rejected call",
			log.String("service", serviceName), log.String("state", string(fromGobreaker(breaker.State()))))

		return nil, fmt.Errorf("%s: %w", serviceName, ErrOpen)
	}

	return result, err
}

// State returns the state of serviceName, or StateUnknown if no breaker exists.
func (m *Manager) State(serviceName string) State {
	m.mu.RLock()
	breaker, ok := m.breakers[serviceName]
	m.mu.RUnlock()

	if !ok {
		return StateUnknown
	}

	return fromGobreaker(breaker.State())
}

// Counts returns the counters of serviceName.
func (m *Manager) Counts(serviceName string) Counts {
	m.mu.RLock()
	breaker, ok := m.breakers[serviceName]
	m.mu.RUnlock()

	if !ok {
		return Counts{}
	}

	c := breaker.Counts()

	return Counts{
		Requests:             c.Requests,
		TotalSuccesses:       c.TotalSuccesses,
		TotalFailures:        c.TotalFailures,
		ConsecutiveSuccesses: c.ConsecutiveSuccesses,
		ConsecutiveFailures:  c.ConsecutiveFailures,
	}
}

// IsHealthy reports whether the breaker of serviceName is closed.
func (m *Manager) IsHealthy(serviceName string) bool {
	return m.State(serviceName) == StateClosed
}

// Reset replaces the breaker of serviceName with a fresh closed one.
func (m *Manager) Reset(serviceName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.configs[serviceName]
	if !ok {
		return
	}

	m.breakers[serviceName] = m.newBreaker(serviceName, cfg)

	m.logger.Log(context.Background(), log.LevelInfo, "circuit breaker reset", log.String("service", serviceName))
}

// RegisterStateChangeListener adds a listener. Nil listeners are ignored.
func (m *Manager) RegisterStateChangeListener(listener StateChangeListener) {
	if listener == nil {
		return
	}

	m.mu.Lock()
	m.listeners = append(m.listeners, listener)
	m.mu.Unlock()
}

func (m *Manager) handleStateChange(serviceName string, from, to gobreaker.State) {
	level := log.LevelInfo
	if to == gobreaker.StateOpen {
		level = log.LevelError
	}

	m.logger.Log(context.Background(), level, "circuit breaker state changed",
		log.String("service", serviceName), log.String("from", from.String()), log.String("to", to.String()))

	m.mu.RLock()
	listeners := append([]StateChangeListener(nil), m.listeners...)
	m.mu.RUnlock()

	fromState, toState := fromGobreaker(from), fromGobreaker(to)

	for _, l := range listeners {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Log(context.Background(), log.LevelError, "state change listener panicked",
						log.String("service", serviceName), log.Any("panic", r))
				}
			}()

			l.OnStateChange(serviceName, fromState, toState)
		}()
	}
}
