package observability

import "context"

// Checker is a dependency probed by the readiness endpoint.
// Check must honour ctx cancellation.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}
