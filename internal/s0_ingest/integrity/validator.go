package integrity

import (
	"fmt"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
	"github.com/wonny/ecfr-scorecard/pkg/logger"
)

// Validator assembles staged rows into a corpus that satisfies referential integrity.
// Defective rows are skipped and counted, never fatal.
// ⭐ SSOT: S0 → S1 integrity gate
type Validator struct {
	logger *logger.Logger
}

// NewValidator creates a new Validator
func NewValidator(log *logger.Logger) *Validator {
	return &Validator{logger: log.WithField("module", "integrity")}
}

// Result is the assembled corpus and the per-row defect counts
type Result struct {
	Corpus                  *contracts.Corpus
	DroppedReferences       int
	UnattributedCorrections int
	DuplicateCorrections    int
	InvalidCorrections      int
}

// Apply copies the counts into an ingest report
func (r *Result) Apply(report *contracts.IngestReport) {
	report.Agencies = len(r.Corpus.Agencies)
	report.CfrReferences = len(r.Corpus.CfrReferences)
	report.Corrections = len(r.Corpus.Corrections)
	report.DroppedReferences = r.DroppedReferences
	report.UnattributedCorrections = r.UnattributedCorrections
	report.DuplicateCorrections = r.DuplicateCorrections
	report.InvalidCorrections = r.InvalidCorrections
}

// Validate checks every reference and correction against the agency set.
// Corrections are attributed to one agency each, then Year and LagDays are derived.
func (v *Validator) Validate(agencies []contracts.Agency, refs []contracts.CfrReference, corrections []contracts.Correction) *Result {
	corpus := &contracts.Corpus{Agencies: agencies}
	res := &Result{Corpus: corpus}
	known := corpus.AgencySlugs()

	// 1. References must point at a known agency
	kept := make([]contracts.CfrReference, 0, len(refs))
	for _, r := range refs {
		if _, ok := known[r.AgencySlug]; !ok {
			res.DroppedReferences++
			v.logger.WithFields(map[string]interface{}{
				"agency_slug": r.AgencySlug,
				"title":       r.Title,
				"error":       contracts.ErrReferentialIntegrity.Error(),
			}).Debug("Dropped CFR reference")
			continue
		}
		kept = append(kept, r)
	}
	corpus.CfrReferences = kept

	// 2. Corrections: dedupe, chronology, attribution
	idx := NewOwnerIndex(kept)
	seen := make(map[int64]struct{}, len(corrections))
	out := make([]contracts.Correction, 0, len(corrections))

	for _, c := range corrections {
		if _, dup := seen[c.ECFRID]; dup {
			res.DuplicateCorrections++
			continue
		}
		seen[c.ECFRID] = struct{}{}

		if !c.IsChronological() {
			res.InvalidCorrections++
			v.logger.WithField("ecfr_id", c.ECFRID).Debug("Dropped correction corrected before it occurred")
			continue
		}

		slug, err := v.attribute(c, known, idx)
		if err != nil {
			res.UnattributedCorrections++
			v.logger.WithFields(map[string]interface{}{
				"ecfr_id": c.ECFRID,
				"title":   c.Title,
				"error":   err.Error(),
			}).Debug("Dropped correction")
			continue
		}

		c.AgencySlug = slug
		c.Derive()
		out = append(out, c)
	}
	corpus.Corrections = out

	if dropped := res.DroppedReferences + res.UnattributedCorrections + res.DuplicateCorrections + res.InvalidCorrections; dropped > 0 {
		v.logger.WithFields(map[string]interface{}{
			"dropped_references":       res.DroppedReferences,
			"unattributed_corrections": res.UnattributedCorrections,
			"duplicate_corrections":    res.DuplicateCorrections,
			"invalid_corrections":      res.InvalidCorrections,
		}).Warn("Skipped defective rows")
	}

	return res
}

func (v *Validator) attribute(c contracts.Correction, known map[string]struct{}, idx *OwnerIndex) (string, error) {
	if c.AgencySlug != "" {
		if _, ok := known[c.AgencySlug]; ok {
			return c.AgencySlug, nil
		}
		return "", fmt.Errorf("%w: unknown agency %q", contracts.ErrReferentialIntegrity, c.AgencySlug)
	}

	if slug, ok := idx.Owner(c); ok {
		return slug, nil
	}
	return "", fmt.Errorf("%w: no agency owns title %d", contracts.ErrReferentialIntegrity, c.Title)
}

type titleKey struct {
	title int
	value string
}

// OwnerIndex resolves a correction's CFR location to the agency that owns it.
// Lookup order: (title, chapter), (title, part), then agencies holding the whole title.
// Ties resolve to the lexicographically smallest slug.
type OwnerIndex struct {
	byChapter map[titleKey]string
	byPart    map[titleKey]string
	byTitle   map[int]string
}

// NewOwnerIndex builds the index from validated references
func NewOwnerIndex(refs []contracts.CfrReference) *OwnerIndex {
	idx := &OwnerIndex{
		byChapter: make(map[titleKey]string),
		byPart:    make(map[titleKey]string),
		byTitle:   make(map[int]string),
	}

	keep := func(current, candidate string) string {
		if current == "" || candidate < current {
			return candidate
		}
		return current
	}

	for _, r := range refs {
		if r.Chapter != nil && *r.Chapter != "" {
			k := titleKey{r.Title, *r.Chapter}
			idx.byChapter[k] = keep(idx.byChapter[k], r.AgencySlug)
		}
		if r.Part != nil && *r.Part != "" {
			k := titleKey{r.Title, *r.Part}
			idx.byPart[k] = keep(idx.byPart[k], r.AgencySlug)
		}
		if r.Tier() == contracts.TierTitle {
			idx.byTitle[r.Title] = keep(idx.byTitle[r.Title], r.AgencySlug)
		}
	}

	return idx
}

// Owner returns the owning agency slug for a correction
func (i *OwnerIndex) Owner(c contracts.Correction) (string, bool) {
	if c.Chapter != nil {
		if slug, ok := i.byChapter[titleKey{c.Title, *c.Chapter}]; ok {
			return slug, true
		}
	}
	if c.Part != nil {
		if slug, ok := i.byPart[titleKey{c.Title, *c.Part}]; ok {
			return slug, true
		}
	}
	if slug, ok := i.byTitle[c.Title]; ok {
		return slug, true
	}
	return "", false
}
