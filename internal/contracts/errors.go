package contracts

import (
	"errors"
	"fmt"
)

// ⭐ SSOT: pipeline error taxonomy. Wrap with fmt.Errorf("...: %w") and match with errors.Is.
var (
	// ErrSourceUnreadable aborts the run before any staging mutation
	ErrSourceUnreadable = errors.New("source unreadable")

	// ErrReferentialIntegrity marks a row without a matching agency; the row is skipped and counted
	ErrReferentialIntegrity = errors.New("referential integrity violation")

	// ErrAggregationUndefined marks a metric that is null by definition (zero words, no resolved corrections)
	ErrAggregationUndefined = errors.New("aggregation undefined")

	// ErrPublishFailure fails the run; the previous snapshot stays current
	ErrPublishFailure = errors.New("publish failed")

	// ErrRunInProgress is returned when another run holds the pipeline lock
	ErrRunInProgress = errors.New("pipeline run already in progress")

	// ErrNoSnapshot is returned by readers before the first successful publish
	ErrNoSnapshot = errors.New("no published snapshot")
)

func errMissing(what string) error {
	return fmt.Errorf("publish input: missing %s", what)
}
