package health

import "context"

// StorePinger checks vector store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Checker checks a remote model endpoint.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
