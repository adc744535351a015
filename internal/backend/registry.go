// Package backend wires the tenant-scoped indices into the retrieval
// engine's searcher contracts and owns tenant registration.
package backend

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
	"github.com/kestrel-search/kestrel/internal/store"
)

// lockFileName guards a data directory against concurrent processes.
const lockFileName = "kestrel.lock"

// Tenant bundles one tenant's indices.
type Tenant struct {
	ID      string
	Keyword store.KeywordIndex
	Vector  store.VectorIndex
}

// Registry owns the per-tenant indices and the shared metadata store.
// Tenant isolation is structural: every tenant gets its own keyword and
// vector index, so a query can only ever see one tenant's documents.
type Registry struct {
	mu       sync.RWMutex
	tenants  map[string]*Tenant
	metadata store.MetadataStore

	dataDir    string
	dimensions int
	fileLock   *flock.Flock
	logger     *slog.Logger
	closed     bool
}

// NewRegistry opens a registry rooted at dataDir. An empty dataDir keeps
// everything in memory. A persistent registry takes an exclusive file lock
// so two processes cannot corrupt the same indices.
func NewRegistry(dataDir string, dimensions int, logger *slog.Logger) (*Registry, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %d", dimensions)
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		tenants:    make(map[string]*Tenant),
		dataDir:    dataDir,
		dimensions: dimensions,
		logger:     logger,
	}

	metadataPath := ""
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}

		r.fileLock = flock.New(filepath.Join(dataDir, lockFileName))
		locked, err := r.fileLock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire data directory lock: %w", err)
		}
		if !locked {
			return nil, kerrors.New(kerrors.ErrCodeStoreLocked,
				fmt.Sprintf("data directory %s is locked by another process", dataDir), nil)
		}

		metadataPath = filepath.Join(dataDir, "metadata.db")
	}

	metadata, err := store.NewSQLiteMetadataStore(metadataPath)
	if err != nil {
		r.releaseLock()
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	r.metadata = metadata

	return r, nil
}

// Metadata returns the shared metadata store.
func (r *Registry) Metadata() store.MetadataStore {
	return r.metadata
}

// Get returns a registered tenant. Unknown tenants are an error so the
// caller can distinguish "no index" from "empty index".
func (r *Registry) Get(tenantID string) (*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, kerrors.New(kerrors.ErrCodeStoreClosed, "registry is closed", nil)
	}
	t, ok := r.tenants[tenantID]
	if !ok {
		return nil, kerrors.New(kerrors.ErrCodeTenantNotFound,
			fmt.Sprintf("tenant %q is not registered", tenantID), nil).
			WithDetail("tenant_id", tenantID)
	}
	return t, nil
}

// GetOrCreate returns the tenant, registering it on first use.
func (r *Registry) GetOrCreate(tenantID string) (*Tenant, error) {
	if t, err := r.Get(tenantID); err == nil {
		return t, nil
	}
	return r.Create(tenantID)
}

// Create registers a tenant and opens its indices. Existing on-disk
// indices are reopened; the vector index is additionally restored from its
// last snapshot when one exists.
func (r *Registry) Create(tenantID string) (*Tenant, error) {
	if tenantID == "" {
		return nil, kerrors.ValidationError("tenant ID must not be empty", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, kerrors.New(kerrors.ErrCodeStoreClosed, "registry is closed", nil)
	}
	if t, ok := r.tenants[tenantID]; ok {
		return t, nil
	}

	keywordPath, vectorPath := "", ""
	if r.dataDir != "" {
		tenantDir := filepath.Join(r.dataDir, "tenants", tenantID)
		if err := os.MkdirAll(tenantDir, 0o755); err != nil {
			return nil, fmt.Errorf("create tenant directory: %w", err)
		}
		keywordPath = filepath.Join(tenantDir, "keyword.bleve")
		vectorPath = filepath.Join(tenantDir, "vectors.hnsw")
	}

	keyword, err := store.NewBleveKeywordIndex(keywordPath)
	if err != nil {
		return nil, kerrors.New(kerrors.ErrCodeIndexCorrupt,
			fmt.Sprintf("open keyword index for tenant %q", tenantID), err)
	}

	vector, err := store.NewHNSWVectorIndex(store.DefaultVectorConfig(r.dimensions))
	if err != nil {
		_ = keyword.Close()
		return nil, fmt.Errorf("create vector index: %w", err)
	}
	if vectorPath != "" {
		if _, statErr := os.Stat(vectorPath); statErr == nil {
			if err := vector.Load(vectorPath); err != nil {
				_ = keyword.Close()
				_ = vector.Close()
				return nil, kerrors.New(kerrors.ErrCodeIndexCorrupt,
					fmt.Sprintf("load vector index for tenant %q", tenantID), err)
			}
		}
	}

	t := &Tenant{ID: tenantID, Keyword: keyword, Vector: vector}
	r.tenants[tenantID] = t

	r.logger.Info("tenant registered",
		slog.String("tenant_id", tenantID),
		slog.Bool("persistent", r.dataDir != ""))
	return t, nil
}

// Tenants lists the registered tenant IDs.
func (r *Registry) Tenants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.tenants))
	for id := range r.tenants {
		ids = append(ids, id)
	}
	return ids
}

// Save snapshots every tenant's vector index to disk. Keyword indices and
// metadata persist themselves as they are written.
func (r *Registry) Save() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.dataDir == "" || r.closed {
		return nil
	}

	for id, t := range r.tenants {
		path := filepath.Join(r.dataDir, "tenants", id, "vectors.hnsw")
		if err := t.Vector.Save(path); err != nil {
			return fmt.Errorf("save vector index for tenant %q: %w", id, err)
		}
	}
	return nil
}

// Close saves vector snapshots, closes all indices, and releases the
// directory lock.
func (r *Registry) Close() error {
	if err := r.Save(); err != nil {
		r.logger.Warn("vector snapshot on close failed", slog.String("error", err.Error()))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	for _, t := range r.tenants {
		if err := t.Keyword.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := t.Vector.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := r.metadata.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	r.releaseLock()
	return firstErr
}

func (r *Registry) releaseLock() {
	if r.fileLock != nil {
		if err := r.fileLock.Unlock(); err != nil {
			r.logger.Warn("release data directory lock failed", slog.String("error", err.Error()))
		}
	}
}
