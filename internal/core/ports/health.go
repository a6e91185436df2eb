package ports

import "context"

// HealthChecker reports on one backing dependency (node, redis, database).
// The error returned by Check is shown verbatim on /health.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
