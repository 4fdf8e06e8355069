package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
	"github.com/wonny/ecfr-scorecard/internal/s3_publish"
	"github.com/wonny/ecfr-scorecard/internal/scoringconfig"
)

// Source reads one published snapshot
type Source interface {
	CurrentSnapshot(ctx context.Context) (*contracts.Snapshot, error)
	Agencies(ctx context.Context, snapshotID string) ([]contracts.Agency, error)
	Corrections(ctx context.Context, snapshotID string, filter s3_publish.CorrectionFilter) ([]contracts.Correction, int, error)
	Metrics(ctx context.Context, snapshotID string) ([]contracts.AgencyMetric, error)
	Scorecards(ctx context.Context, snapshotID string) ([]contracts.Scorecard, error)
	Trends(ctx context.Context, snapshotID string) (*contracts.Trends, error)
}

// Load reads the current snapshot's tables needed for a summary
func Load(ctx context.Context, src Source) (Input, error) {
	snapshot, err := src.CurrentSnapshot(ctx)
	if err != nil {
		return Input{}, err
	}

	in := Input{Snapshot: snapshot}
	if in.Agencies, err = src.Agencies(ctx, snapshot.ID); err != nil {
		return Input{}, err
	}
	if in.Metrics, err = src.Metrics(ctx, snapshot.ID); err != nil {
		return Input{}, err
	}
	if in.Scorecards, err = src.Scorecards(ctx, snapshot.ID); err != nil {
		return Input{}, err
	}
	if in.Trends, err = src.Trends(ctx, snapshot.ID); err != nil {
		return Input{}, err
	}
	return in, nil
}

// allCorrections pages through every correction of a snapshot
func allCorrections(ctx context.Context, src Source, snapshotID string) ([]contracts.Correction, error) {
	var out []contracts.Correction
	filter := s3_publish.CorrectionFilter{Limit: s3_publish.MaxLimit}
	for {
		page, total, err := src.Corrections(ctx, snapshotID, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) == 0 || len(out) >= total {
			return out, nil
		}
		filter.Offset += len(page)
	}
}

// Export writes every table of the current snapshot plus the summary as JSON files in dir.
// It returns the written file paths.
func Export(ctx context.Context, src Source, dir string, cfg scoringconfig.Report) ([]string, error) {
	in, err := Load(ctx, src)
	if err != nil {
		return nil, err
	}
	corrections, err := allCorrections(ctx, src, in.Snapshot.ID)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	files := []struct {
		name string
		data interface{}
	}{
		{"snapshot.json", in.Snapshot},
		{"agencies.json", in.Agencies},
		{"corrections.json", corrections},
		{"agency_metrics.json", in.Metrics},
		{"scorecard.json", in.Scorecards},
		{"correction_trends_yearly.json", in.Trends.Yearly},
		{"correction_trends_by_title.json", in.Trends.ByTitle},
		{"time_series.json", in.Trends.Monthly},
		{"summary_report.json", Build(in, cfg)},
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeJSON(path, f.data); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
