package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned when a breaker rejects a call without running it.
var ErrOpen = errors.New("circuitbreaker: circuit open")

// Config controls when a breaker trips and how it recovers.
type Config struct {
	MaxRequests         uint32        // calls allowed while half-open
	Interval            time.Duration // closed-state counter reset period
	Timeout             time.Duration // open duration before half-open
	ConsecutiveFailures uint32
	FailureRatio        float64
	MinRequests         uint32 // calls observed before FailureRatio applies
}

// DefaultConfig suits the payment gateway API.
func DefaultConfig() Config {
	return Config{
		MaxRequests:         3,
		Interval:            2 * time.Minute,
		Timeout:             10 * time.Second,
		ConsecutiveFailures: 5,
		FailureRatio:        0.5,
		MinRequests:         10,
	}
}

// State is a breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

// Counts mirrors gobreaker.Counts.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// StateChangeListener is notified asynchronously of breaker transitions.
type StateChangeListener interface {
	OnStateChange(serviceName string, from State, to State)
}

// StateChangeFunc adapts a function to StateChangeListener.
type StateChangeFunc func(serviceName string, from State, to State)

// OnStateChange implements StateChangeListener.
func (f StateChangeFunc) OnStateChange(serviceName string, from State, to State) {
	f(serviceName, from, to)
}

func fromGobreaker(state gobreaker.State) State {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}

func readyToTrip(cfg Config) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
			return true
		}

		if counts.Requests == 0 || counts.Requests < cfg.MinRequests {
			return false
		}

		return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
	}
}
