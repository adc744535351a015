package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-search/kestrel/internal/embed"
	kerrors "github.com/kestrel-search/kestrel/internal/errors"
)

func newMemoryRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry("", embed.StaticDimensions, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRegistry_CreateAndGet(t *testing.T) {
	r := newMemoryRegistry(t)

	created, err := r.Create("acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", created.ID)

	got, err := r.Get("acme")
	require.NoError(t, err)
	assert.Same(t, created, got)

	// Create is idempotent.
	again, err := r.Create("acme")
	require.NoError(t, err)
	assert.Same(t, created, again)
}

func TestRegistry_UnknownTenant(t *testing.T) {
	r := newMemoryRegistry(t)

	_, err := r.Get("ghost")
	require.Error(t, err)
	assert.Equal(t, kerrors.ErrCodeTenantNotFound, kerrors.GetCode(err))
}

func TestRegistry_EmptyTenantID(t *testing.T) {
	r := newMemoryRegistry(t)

	_, err := r.Create("")
	assert.Error(t, err)
}

func TestRegistry_Tenants(t *testing.T) {
	r := newMemoryRegistry(t)

	_, err := r.Create("acme")
	require.NoError(t, err)
	_, err = r.Create("globex")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"acme", "globex"}, r.Tenants())
}

func TestRegistry_DirectoryLock(t *testing.T) {
	dir := t.TempDir()

	first, err := NewRegistry(dir, embed.StaticDimensions, nil)
	require.NoError(t, err)
	defer first.Close()

	_, err = NewRegistry(dir, embed.StaticDimensions, nil)
	require.Error(t, err)
	assert.Equal(t, kerrors.ErrCodeStoreLocked, kerrors.GetCode(err))
}

func TestRegistry_LockReleasedOnClose(t *testing.T) {
	dir := t.TempDir()

	first, err := NewRegistry(dir, embed.StaticDimensions, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewRegistry(dir, embed.StaticDimensions, nil)
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}

func TestRegistry_ClosedErrors(t *testing.T) {
	r := newMemoryRegistry(t)
	require.NoError(t, r.Close())

	_, err := r.Get("acme")
	assert.Error(t, err)

	_, err = r.Create("acme")
	assert.Error(t, err)
}
