package contracts

import (
	"context"
	"io"
)

// ChecksumDecision is the outcome of the checksum gate for one source
type ChecksumDecision struct {
	Ingest   bool   // false iff Previous == Digest
	Digest   string // hex SHA-256 of the raw bytes
	Previous string // empty when the source was never recorded
}

// ChecksumStore gates re-ingestion on the content digest (S0)
// ⭐ SSOT: S0 checksum gate interface
type ChecksumStore interface {
	ShouldIngest(ctx context.Context, sourceID string, content io.Reader) (ChecksumDecision, error)
	Record(ctx context.Context, sourceID, digest string) error
	Digests(ctx context.Context) (map[string]string, error)
}

// StagingStore holds the normalized corpus between runs (S0)
// ⭐ SSOT: S0 staging interface
type StagingStore interface {
	ReplaceAgencies(ctx context.Context, agencies []Agency, refs []CfrReference) error
	ReplaceCorrections(ctx context.Context, corrections []Correction) error
	LoadAgencies(ctx context.Context) ([]Agency, []CfrReference, error)
	LoadCorrections(ctx context.Context) ([]Correction, error)
}

// Ingestor produces a validated corpus (S0)
// ⭐ SSOT: S0 ingestion interface
type Ingestor interface {
	Ingest(ctx context.Context) (*Corpus, *IngestReport, error)
}

// MetricsEngine aggregates the corpus per agency (S1)
// ⭐ SSOT: S1 metrics interface
type MetricsEngine interface {
	Compute(ctx context.Context, corpus *Corpus) (*MetricSet, error)
}

// ScorecardRanker ranks the full metric population (S2)
// ⭐ SSOT: S2 ranking interface
type ScorecardRanker interface {
	Rank(ctx context.Context, metrics []AgencyMetric) ([]Scorecard, error)
}

// Publisher atomically publishes a snapshot (S3)
// ⭐ SSOT: S3 publish interface
type Publisher interface {
	Publish(ctx context.Context, in *PublishInput) (*Snapshot, error)
	CurrentSnapshot(ctx context.Context) (*Snapshot, error)
}
