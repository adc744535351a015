package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetadataStore(t *testing.T) *SQLiteMetadataStore {
	t.Helper()
	s, err := NewSQLiteMetadataStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteMetadataStore_SaveAndGet(t *testing.T) {
	s := newTestMetadataStore(t)
	docs := testDocs()
	require.NoError(t, s.SaveDocuments(context.Background(), docs))

	metas, err := s.GetDocuments(context.Background(), "acme", []string{"doc-1", "doc-2"})
	require.NoError(t, err)
	require.Len(t, metas, 2)

	assert.Equal(t, "Payment gateway runbook", metas["doc-1"].Title)
	assert.Equal(t, "Invoice schema notes", metas["doc-2"].Title)
	assert.Equal(t, docs[0].Timestamp, metas["doc-1"].Timestamp)
}

func TestSQLiteMetadataStore_MissingIDsAbsent(t *testing.T) {
	s := newTestMetadataStore(t)
	require.NoError(t, s.SaveDocuments(context.Background(), testDocs()))

	metas, err := s.GetDocuments(context.Background(), "acme", []string{"doc-1", "ghost"})
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Contains(t, metas, "doc-1")
}

func TestSQLiteMetadataStore_TenantScoping(t *testing.T) {
	s := newTestMetadataStore(t)
	require.NoError(t, s.SaveDocuments(context.Background(), testDocs()))

	other := &Document{
		ID:        "doc-1",
		TenantID:  "globex",
		Title:     "Completely different document",
		Timestamp: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveDocuments(context.Background(), []*Document{other}))

	acme, err := s.GetDocuments(context.Background(), "acme", []string{"doc-1"})
	require.NoError(t, err)
	assert.Equal(t, "Payment gateway runbook", acme["doc-1"].Title)

	globex, err := s.GetDocuments(context.Background(), "globex", []string{"doc-1"})
	require.NoError(t, err)
	assert.Equal(t, "Completely different document", globex["doc-1"].Title)
}

func TestSQLiteMetadataStore_Upsert(t *testing.T) {
	s := newTestMetadataStore(t)
	docs := testDocs()
	require.NoError(t, s.SaveDocuments(context.Background(), docs))

	docs[0].Title = "Payment gateway runbook v2"
	require.NoError(t, s.SaveDocuments(context.Background(), docs[:1]))

	metas, err := s.GetDocuments(context.Background(), "acme", []string{"doc-1"})
	require.NoError(t, err)
	assert.Equal(t, "Payment gateway runbook v2", metas["doc-1"].Title)
}

func TestSQLiteMetadataStore_Delete(t *testing.T) {
	s := newTestMetadataStore(t)
	require.NoError(t, s.SaveDocuments(context.Background(), testDocs()))

	require.NoError(t, s.DeleteDocuments(context.Background(), "acme", []string{"doc-1", "doc-2"}))

	metas, err := s.GetDocuments(context.Background(), "acme", []string{"doc-1", "doc-2", "doc-3"})
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Contains(t, metas, "doc-3")
}

func TestSQLiteMetadataStore_EmptyInput(t *testing.T) {
	s := newTestMetadataStore(t)

	require.NoError(t, s.SaveDocuments(context.Background(), nil))
	require.NoError(t, s.DeleteDocuments(context.Background(), "acme", nil))

	metas, err := s.GetDocuments(context.Background(), "acme", nil)
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestSQLiteMetadataStore_Persistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.db")

	s, err := NewSQLiteMetadataStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveDocuments(context.Background(), testDocs()))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteMetadataStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	metas, err := reopened.GetDocuments(context.Background(), "acme", []string{"doc-3"})
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "Holiday calendar", metas["doc-3"].Title)
}

func TestSQLiteMetadataStore_ClosedErrors(t *testing.T) {
	s := newTestMetadataStore(t)
	require.NoError(t, s.Close())

	err := s.SaveDocuments(context.Background(), testDocs())
	assert.Error(t, err)

	_, err = s.GetDocuments(context.Background(), "acme", []string{"doc-1"})
	assert.Error(t, err)
}
