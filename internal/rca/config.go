package rca

import (
	"fmt"
	"sync"
)

// Default thresholds applied until the service layer overrides them.
const (
	DefaultAnomalyThreshold     = 0.65
	DefaultCorrelationThreshold = 0.7
)

// Config holds the process-wide analysis thresholds. It lives for the
// process and is shared across requests; setters validate and swap a value
// atomically, and an in-flight analysis reads one consistent snapshot for
// its whole run, so it never observes a torn update.
type Config struct {
	mu                   sync.RWMutex
	anomalyThreshold     float64
	correlationThreshold float64
}

// NewConfig returns a Config with the default thresholds.
func NewConfig() *Config {
	return &Config{
		anomalyThreshold:     DefaultAnomalyThreshold,
		correlationThreshold: DefaultCorrelationThreshold,
	}
}

// SetAnomalyThreshold updates the composite-score cutoff. Values outside
// (0,1] are rejected and the active threshold stays unchanged.
func (c *Config) SetAnomalyThreshold(t float64) error {
	if t <= 0 || t > 1 {
		return fmt.Errorf("%w: anomaly threshold %g", ErrInvalidThreshold, t)
	}
	c.mu.Lock()
	c.anomalyThreshold = t
	c.mu.Unlock()
	return nil
}

// SetCorrelationThreshold updates the coefficient cutoff. Values outside
// (0,1] are rejected and the active threshold stays unchanged.
func (c *Config) SetCorrelationThreshold(t float64) error {
	if t <= 0 || t > 1 {
		return fmt.Errorf("%w: correlation threshold %g", ErrInvalidThreshold, t)
	}
	c.mu.Lock()
	c.correlationThreshold = t
	c.mu.Unlock()
	return nil
}

// Snapshot returns both thresholds as one consistent read.
func (c *Config) Snapshot() (anomalyThreshold, correlationThreshold float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.anomalyThreshold, c.correlationThreshold
}

// AnomalyThreshold returns the active composite-score cutoff.
func (c *Config) AnomalyThreshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.anomalyThreshold
}

// CorrelationThreshold returns the active coefficient cutoff.
func (c *Config) CorrelationThreshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.correlationThreshold
}
