package model

import (
	"testing"
	"time"
)

func TestEndpointHealthTracking(t *testing.T) {
	r := NewDefaultRegistry()

	if !r.IsEndpointAvailable("ollama") {
		t.Error("expected ollama to be available initially")
	}
	if r.GetEndpointHealth("ollama") != nil {
		t.Error("expected no health info before any requests")
	}

	r.MarkEndpointSuccess("ollama")

	health := r.GetEndpointHealth("ollama")
	if health == nil {
		t.Fatal("expected health info after success")
	}
	if !health.Available || health.FailureCount != 0 || health.LastSuccess.IsZero() {
		t.Errorf("unexpected health after success: %+v", health)
	}
}

func TestCircuitBreakerLifecycle(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenRequests: 1,
	})

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.health.now = func() time.Time { return now }

	r.MarkEndpointFailure("ollama")
	if !r.IsEndpointAvailable("ollama") {
		t.Error("one failure must not open the circuit")
	}

	r.MarkEndpointFailure("ollama")
	if r.IsEndpointAvailable("ollama") {
		t.Error("circuit should be open after threshold")
	}
	if h := r.GetEndpointHealth("ollama"); !h.CircuitOpen {
		t.Error("expected CircuitOpen in health copy")
	}

	now = now.Add(31 * time.Second)
	if !r.IsEndpointAvailable("ollama") {
		t.Error("first probe should pass after recovery timeout")
	}
	if r.IsEndpointAvailable("ollama") {
		t.Error("only one half-open probe is allowed")
	}

	r.MarkEndpointSuccess("ollama")
	if !r.IsEndpointAvailable("ollama") {
		t.Error("success should close the circuit")
	}
}

func TestGetAvailableFallbackChain(t *testing.T) {
	r := NewRegistry(map[Capability]*CapabilityConfig{
		CapabilitySpec: {Preferred: []string{"a"}, Fallback: []string{"b"}},
	}, map[string]*EndpointConfig{
		"a": {Provider: "openai"},
		"b": {Provider: "ollama"},
	})
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour, HalfOpenRequests: 1})

	r.MarkEndpointFailure("a")
	chain := r.GetAvailableFallbackChain(CapabilitySpec)
	if len(chain) != 1 || chain[0] != "b" {
		t.Errorf("expected only b, got %v", chain)
	}

	r.MarkEndpointFailure("b")
	chain = r.GetAvailableFallbackChain(CapabilitySpec)
	if len(chain) != 2 {
		t.Errorf("all-open should return full chain, got %v", chain)
	}

	snap := r.HealthSnapshot()
	if snap["a"].Available || snap["b"].Available {
		t.Errorf("snapshot should report both unavailable: %+v", snap)
	}

	r.ResetEndpointHealth("a")
	if r.GetEndpointHealth("a") != nil {
		t.Error("reset should clear health")
	}
}
