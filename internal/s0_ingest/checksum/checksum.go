package checksum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
)

// Digest returns the hex SHA-256 of everything readable from r.
// A read failure is reported as contracts.ErrSourceUnreadable.
func Digest(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("%w: %v", contracts.ErrSourceUnreadable, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// backend is the persistence half of a checksum store
type backend interface {
	get(ctx context.Context, sourceID string) (string, bool, error)
	put(ctx context.Context, sourceID, digest string, at time.Time) error
	all(ctx context.Context) (map[string]string, error)
}

// gate implements the shared ShouldIngest/Record logic over a backend
type gate struct {
	b   backend
	now func() time.Time
}

// ShouldIngest hashes content and compares it with the stored digest.
// Ingest is false iff a digest is stored for sourceID and it is equal.
func (g *gate) ShouldIngest(ctx context.Context, sourceID string, content io.Reader) (contracts.ChecksumDecision, error) {
	digest, err := Digest(content)
	if err != nil {
		return contracts.ChecksumDecision{}, fmt.Errorf("digest %s: %w", sourceID, err)
	}

	previous, found, err := g.b.get(ctx, sourceID)
	if err != nil {
		return contracts.ChecksumDecision{}, fmt.Errorf("lookup digest %s: %w", sourceID, err)
	}

	return contracts.ChecksumDecision{
		Ingest:   !found || previous != digest,
		Digest:   digest,
		Previous: previous,
	}, nil
}

// Record stores the digest for sourceID, last write wins
func (g *gate) Record(ctx context.Context, sourceID, digest string) error {
	if sourceID == "" || digest == "" {
		return fmt.Errorf("record checksum: source id and digest are required")
	}
	if err := g.b.put(ctx, sourceID, digest, g.now().UTC()); err != nil {
		return fmt.Errorf("record checksum %s: %w", sourceID, err)
	}
	return nil
}

// Digests returns every stored digest keyed by source id
func (g *gate) Digests(ctx context.Context) (map[string]string, error) {
	return g.b.all(ctx)
}

// MemoryStore keeps digests in process memory (tests, dry runs)
type MemoryStore struct {
	gate
}

// NewMemoryStore creates an empty in-memory checksum store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{gate: gate{b: &memoryBackend{entries: make(map[string]string)}, now: time.Now}}
}

type memoryBackend struct {
	mu      sync.RWMutex
	entries map[string]string
}

func (m *memoryBackend) get(_ context.Context, sourceID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.entries[sourceID]
	return d, ok, nil
}

func (m *memoryBackend) put(_ context.Context, sourceID, digest string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[sourceID] = digest
	return nil
}

func (m *memoryBackend) all(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

var (
	_ contracts.ChecksumStore = (*MemoryStore)(nil)
	_ contracts.ChecksumStore = (*DuckDBStore)(nil)
)
