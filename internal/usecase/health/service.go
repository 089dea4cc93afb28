package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates every configured dependency answered.
	Healthy Status = "ok"
	// Degraded indicates the run will continue without some optional dependency.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckDisabled marks a dependency turned off in configuration.
	CheckDisabled CheckResult = "disabled"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks. Every dependency is optional, so a failing check
// degrades the report and never makes it an error.
type Service struct {
	store      StorePinger
	generation Checker
	embedding  Checker
	timeout    time.Duration
}

// New creates a Service. Pass nil for a dependency that is disabled.
func New(store StorePinger, generation, embedding Checker) *Service {
	return &Service{store: store, generation: generation, embedding: embedding, timeout: 5 * time.Second}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	checks := map[string]CheckResult{
		"vector_store": probe(s.store != nil, func() error { return s.store.Ping(ctx) }),
		"generation":   probe(s.generation != nil, func() error { return s.generation.HealthCheck(ctx) }),
		"embedding":    probe(s.embedding != nil, func() error { return s.embedding.HealthCheck(ctx) }),
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func probe(enabled bool, fn func() error) CheckResult {
	if !enabled {
		return CheckDisabled
	}
	if err := fn(); err != nil {
		return CheckError
	}
	return CheckOK
}
