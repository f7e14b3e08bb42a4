package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyprcat/hyprcat/internal/catalog"
	"github.com/hyprcat/hyprcat/internal/store"
)

func TestSeedMeshAndSearch(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()
	svc := catalog.NewService(backend, "http://localhost:8080")

	require.NoError(t, svc.SeedMesh(ctx))

	root, err := svc.Get(ctx, "http://localhost:8080/")
	require.NoError(t, err)
	require.True(t, root.HasType("hydra:EntryPoint"))

	results, total, err := svc.Search(ctx, "retail", "", "", 0, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, results, 2)
	require.Equal(t, "http://localhost:8080/store", results[0].ID())
}

func TestSeedMeshIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()
	svc := catalog.NewService(backend, "http://localhost:8080")

	require.NoError(t, svc.SeedMesh(ctx))
	require.NoError(t, svc.SeedMesh(ctx))

	_, total, err := svc.List(ctx, 0, 100)
	require.NoError(t, err)
	require.Equal(t, 8, total)
}
