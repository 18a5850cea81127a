package client

import (
	"math"
	"math/rand/v2"
	"time"
)

// ReconnectStrategy defines the gateway reconnection behavior. Attempts
// are counted from zero and reset once a session reaches READY.
type ReconnectStrategy struct {
	// MaxRetries of zero or less retries forever
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Jitter spreads each delay by up to this fraction in either direction
	Jitter float64
}

// DefaultReconnectStrategy returns the default reconnection strategy
func DefaultReconnectStrategy() *ReconnectStrategy {
	return &ReconnectStrategy{
		MaxRetries:    0,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        0.2,
	}
}

// NextDelay calculates the delay before the given retry attempt
func (rs *ReconnectStrategy) NextDelay(attempt int) time.Duration {
	delay := float64(rs.InitialDelay) * math.Pow(rs.BackoffFactor, float64(attempt))
	if delay > float64(rs.MaxDelay) {
		delay = float64(rs.MaxDelay)
	}
	if rs.Jitter > 0 {
		delay += delay * rs.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(delay)
}

// ShouldRetry determines if another retry attempt should be made
func (rs *ReconnectStrategy) ShouldRetry(attempt int) bool {
	return rs.MaxRetries <= 0 || attempt < rs.MaxRetries
}
