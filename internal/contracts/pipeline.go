package contracts

// Pipeline stages (SSOT)
// Every log line, run record and metadata map uses these constants.
//
// Flow:
//   S0 → S1 → S2 → S3
//   Ingest  Metrics  Scorecard  Publish

// Stage represents a pipeline stage
type Stage string

const (
	// StageIngest S0: checksum-gated ingestion into staging
	// Location: internal/s0_ingest/
	StageIngest Stage = "S0_INGEST"

	// StageMetrics S1: per-agency aggregation and trend tables
	// Location: internal/s1_metrics/
	StageMetrics Stage = "S1_METRICS"

	// StageScorecard S2: competition ranking, composite score, grade
	// Location: internal/s2_scorecard/
	StageScorecard Stage = "S2_SCORECARD"

	// StagePublish S3: atomic snapshot publish to the serving store
	// Location: internal/s3_publish/
	StagePublish Stage = "S3_PUBLISH"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageIngest:
		return "S0"
	case StageMetrics:
		return "S1"
	case StageScorecard:
		return "S2"
	case StagePublish:
		return "S3"
	default:
		return "UNKNOWN"
	}
}

// Description returns a human readable description of the stage
func (s Stage) Description() string {
	switch s {
	case StageIngest:
		return "checksum-gated ingestion"
	case StageMetrics:
		return "agency metrics and trends"
	case StageScorecard:
		return "ranking and grading"
	case StagePublish:
		return "snapshot publish"
	default:
		return "unknown"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageIngest,
		StageMetrics,
		StageScorecard,
		StagePublish,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// PipelineResult represents the result of a pipeline stage execution
type PipelineResult struct {
	Stage       Stage                  `json:"stage"`
	Success     bool                   `json:"success"`
	InputCount  int                    `json:"input_count"`
	OutputCount int                    `json:"output_count"`
	Duration    int64                  `json:"duration_ms"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
