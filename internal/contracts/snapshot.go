package contracts

import "time"

// SnapshotStatus is the lifecycle state of a published snapshot
type SnapshotStatus string

const (
	SnapshotBuilding  SnapshotStatus = "building"
	SnapshotPublished SnapshotStatus = "published"
	SnapshotFailed    SnapshotStatus = "failed"
)

// Snapshot is one immutable published version of the serving tables.
// Readers resolve the current one through the serving store pointer.
type Snapshot struct {
	ID                string            `json:"snapshot_id"`
	RunID             string            `json:"run_id"`
	Status            SnapshotStatus    `json:"status"`
	SourceDigests     map[string]string `json:"source_digests"`
	ScoringConfigHash string            `json:"scoring_config_hash"`
	AgencyCount       int               `json:"agency_count"`
	CorrectionCount   int               `json:"correction_count"`
	ScorecardCount    int               `json:"scorecard_count"`
	CreatedAt         time.Time         `json:"created_at"`
	PublishedAt       *time.Time        `json:"published_at,omitempty"`
}

// PublishInput is everything S3 writes for one snapshot
// ⭐ SSOT: S2 → S3 handoff
type PublishInput struct {
	SnapshotID        string
	RunID             string
	Corpus            *Corpus
	Metrics           *MetricSet
	Scorecards        []Scorecard
	SourceDigests     map[string]string
	ScoringConfigHash string
}

// Validate checks that the input is complete enough to publish
func (p *PublishInput) Validate() error {
	switch {
	case p.SnapshotID == "":
		return errMissing("snapshot id")
	case p.RunID == "":
		return errMissing("run id")
	case p.Corpus == nil:
		return errMissing("corpus")
	case p.Metrics == nil:
		return errMissing("metrics")
	}
	return nil
}

// RunStatus is the outcome of one pipeline run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunUnchanged RunStatus = "unchanged" // every source digest matched, nothing published
	RunFailed    RunStatus = "failed"
)

// RunRecord is one row of the pipeline run history
type RunRecord struct {
	RunID      string           `json:"run_id"`
	SnapshotID string           `json:"snapshot_id,omitempty"`
	Status     RunStatus        `json:"status"`
	Trigger    string           `json:"trigger"` // cli, scheduler
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Error      string           `json:"error,omitempty"`
	Results    []PipelineResult `json:"results,omitempty"`
	Ingest     *IngestReport    `json:"ingest,omitempty"`
}
