package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates component health checks. Components register
// under a name (cache, llm, embedding, one entry per scraper source)
// and are probed on every Check call.
type Service struct {
	checkers map[string]Checker
}

// New creates a Service with no registered components.
func New() *Service {
	return &Service{checkers: make(map[string]Checker)}
}

// Register adds a named component probe. Registering nil is a no-op so
// optional components wire through without guards.
func (s *Service) Register(name string, c Checker) *Service {
	if c != nil {
		s.checkers[name] = c
	}
	return s
}

// Check probes every registered component. All passing gives Healthy,
// all failing Unhealthy, anything in between Degraded. An empty
// registry reports Healthy: the process itself is up.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checkers))
	failed := 0

	for name, c := range s.checkers {
		if err := c.HealthCheck(ctx); err != nil {
			checks[name] = CheckError
			failed++
		} else {
			checks[name] = CheckOK
		}
	}

	status := Healthy
	switch {
	case failed == 0:
	case failed == len(checks):
		status = Unhealthy
	default:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
