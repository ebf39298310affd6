package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexChecker brings the object index up, migrating the legacy one if needed.
type IndexChecker interface {
	EnsureIndex(ctx context.Context) error
}
