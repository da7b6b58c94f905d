package model

import (
	"sync"
	"time"
)

// EndpointHealth tracks the health status of a model endpoint.
type EndpointHealth struct {
	Available       bool      `json:"available"`
	LastSuccess     time.Time `json:"last_success,omitempty"`
	LastFailure     time.Time `json:"last_failure,omitempty"`
	FailureCount    int       `json:"failure_count"`
	CircuitOpen     bool      `json:"circuit_open"`
	CircuitOpenedAt time.Time `json:"circuit_opened_at,omitempty"`
}

// HealthConfig configures the circuit breaker.
type HealthConfig struct {
	// FailureThreshold is the number of consecutive failures before the circuit opens.
	FailureThreshold int

	// RecoveryTimeout is how long an open circuit rejects requests.
	RecoveryTimeout time.Duration

	// HalfOpenRequests is how many probe requests pass once the timeout elapses.
	HalfOpenRequests int
}

// DefaultHealthConfig returns the default circuit breaker settings.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenRequests: 1,
	}
}

type healthState struct {
	mu       sync.Mutex
	config   HealthConfig
	statuses map[string]*EndpointHealth
	probes   map[string]int
	now      func() time.Time
}

func newHealthState(cfg HealthConfig) *healthState {
	return &healthState{
		config:   cfg,
		statuses: make(map[string]*EndpointHealth),
		probes:   make(map[string]int),
		now:      time.Now,
	}
}

func (h *healthState) status(name string) *EndpointHealth {
	s, ok := h.statuses[name]
	if !ok {
		s = &EndpointHealth{Available: true}
		h.statuses[name] = s
	}
	return s
}

// MarkEndpointSuccess records a successful request and closes the circuit.
func (r *Registry) MarkEndpointSuccess(name string) {
	h := r.health
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.status(name)
	s.LastSuccess = h.now()
	s.FailureCount = 0
	s.Available = true
	s.CircuitOpen = false
	delete(h.probes, name)
}

// MarkEndpointFailure records a failed request, opening the circuit at the threshold.
func (r *Registry) MarkEndpointFailure(name string) {
	h := r.health
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.status(name)
	s.LastFailure = h.now()
	s.FailureCount++
	if s.FailureCount >= h.config.FailureThreshold {
		s.CircuitOpen = true
		s.CircuitOpenedAt = h.now()
		s.Available = false
		delete(h.probes, name)
	}
}

// IsEndpointAvailable reports whether a request may be sent to the endpoint.
// After the recovery timeout a limited number of half-open probes are let through.
func (r *Registry) IsEndpointAvailable(name string) bool {
	h := r.health
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.statuses[name]
	if !ok || !s.CircuitOpen {
		return true
	}
	if h.now().Sub(s.CircuitOpenedAt) <= h.config.RecoveryTimeout {
		return false
	}
	if h.probes[name] >= h.config.HalfOpenRequests {
		return false
	}
	h.probes[name]++
	return true
}

// GetEndpointHealth returns a copy of the endpoint's health, or nil if unknown.
func (r *Registry) GetEndpointHealth(name string) *EndpointHealth {
	h := r.health
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.statuses[name]; ok {
		cp := *s
		return &cp
	}
	return nil
}

// HealthSnapshot returns the health of every configured endpoint.
func (r *Registry) HealthSnapshot() map[string]EndpointHealth {
	names := r.ListEndpoints()

	h := r.health
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]EndpointHealth, len(names))
	for _, name := range names {
		if s, ok := h.statuses[name]; ok {
			out[name] = *s
		} else {
			out[name] = EndpointHealth{Available: true}
		}
	}
	return out
}

// GetAvailableFallbackChain returns the fallback chain filtered to endpoints whose
// circuit is closed. When every circuit is open the full chain is returned.
func (r *Registry) GetAvailableFallbackChain(c Capability) []string {
	chain := r.GetFallbackChain(c)

	h := r.health
	h.mu.Lock()
	available := make([]string, 0, len(chain))
	for _, name := range chain {
		s, ok := h.statuses[name]
		if !ok || !s.CircuitOpen || h.now().Sub(s.CircuitOpenedAt) > h.config.RecoveryTimeout {
			available = append(available, name)
		}
	}
	h.mu.Unlock()

	if len(available) == 0 {
		return chain
	}
	return available
}

// SetHealthConfig updates the circuit breaker configuration.
func (r *Registry) SetHealthConfig(cfg HealthConfig) {
	r.health.mu.Lock()
	defer r.health.mu.Unlock()
	r.health.config = cfg
}

// ResetEndpointHealth clears the health status for an endpoint.
func (r *Registry) ResetEndpointHealth(name string) {
	r.health.mu.Lock()
	defer r.health.mu.Unlock()
	delete(r.health.statuses, name)
	delete(r.health.probes, name)
}
