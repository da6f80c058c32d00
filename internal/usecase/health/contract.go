package health

import "context"

// Checker probes one component.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a plain function to a Checker.
type CheckerFunc func(ctx context.Context) error

// HealthCheck implements Checker.
func (f CheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }
