// Package store defines the resource persistence interface shared by all
// backends (memory, file, postgres) and the common not-found error.
package store

import (
	"context"
	"errors"

	"github.com/hyprcat/hyprcat/internal/jsonld"
)

// ErrNotFound is returned by Get/Delete when the id does not exist.
var ErrNotFound = errors.New("store: resource not found")

// Backend is the persistence contract every resource store implements.
// All methods are safe for concurrent use.
type Backend interface {
	Get(ctx context.Context, id string) (jsonld.Node, error)
	Put(ctx context.Context, n jsonld.Node) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]jsonld.Node, int, error)
	FindByType(ctx context.Context, typ string, offset, limit int) ([]jsonld.Node, int, error)
	Close() error
}
