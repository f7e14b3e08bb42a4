package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyprcat/hyprcat/internal/jsonld"
	"github.com/hyprcat/hyprcat/internal/store"
)

func TestMemoryBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()

	n := jsonld.New("urn:uuid:1", "schema:Product")
	n.Set("schema:name", "Widget")
	require.NoError(t, backend.Put(ctx, n))

	got, err := backend.Get(ctx, "urn:uuid:1")
	require.NoError(t, err)
	require.Equal(t, "Widget", got.GetString("schema:name"))

	_, err = backend.Get(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryBackendFindByTypeAndPagination(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()

	for i := 0; i < 5; i++ {
		id := "urn:uuid:" + string(rune('a'+i))
		n := jsonld.New(id, "schema:Product")
		require.NoError(t, backend.Put(ctx, n))
	}
	require.NoError(t, backend.Put(ctx, jsonld.New("urn:uuid:other", "schema:Person")))

	results, total, err := backend.FindByType(ctx, "schema:Product", 0, 3)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, results, 3)

	results, total, err = backend.FindByType(ctx, "schema:Product", 3, 3)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, results, 2)
}

func TestMemoryBackendDelete(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()

	require.NoError(t, backend.Put(ctx, jsonld.New("urn:uuid:1")))
	require.NoError(t, backend.Delete(ctx, "urn:uuid:1"))
	require.ErrorIs(t, backend.Delete(ctx, "urn:uuid:1"), store.ErrNotFound)
}
