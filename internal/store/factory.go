package store

import (
	"context"
	"fmt"
)

// Open constructs the Backend selected by backend ("memory", "file",
// "postgres"), using dir/dsn as appropriate. An empty name selects
// memory; any other unknown backend name is rejected with an error.
func Open(ctx context.Context, backend, dir, postgresDSN string) (Backend, error) {
	switch backend {
	case "file":
		return NewFileBackend(dir)
	case "postgres":
		return NewPostgresBackend(ctx, postgresDSN)
	case "memory", "":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}
