package health

import "context"

// Pinger checks cache availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexSizer reports how many chunks the loaded index holds.
type IndexSizer interface {
	Len() int
}
