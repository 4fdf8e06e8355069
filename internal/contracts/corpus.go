package contracts

import "time"

// Tier is the most specific CFR hierarchy level present on a reference
type Tier string

const (
	TierSection Tier = "section"
	TierPart    Tier = "part"
	TierChapter Tier = "chapter"
	TierTitle   Tier = "title"
)

// Agency is one node of the flattened eCFR agency tree
// ⭐ SSOT: Slug is the join key for every derived table
type Agency struct {
	Slug               string `json:"slug"`
	Name               string `json:"name"`
	ShortName          string `json:"short_name"`
	ParentSlug         string `json:"parent_slug,omitempty"` // empty for top-level agencies
	TotalCFRReferences int    `json:"total_cfr_references"`
	ChildCount         int    `json:"child_count"`
}

// IsTopLevel reports whether the agency has no parent
func (a *Agency) IsTopLevel() bool {
	return a.ParentSlug == ""
}

// CfrReference is a CFR hierarchy pointer owned by exactly one agency.
// Nil tier fields mean "not specified at that level".
type CfrReference struct {
	AgencySlug string  `json:"agency_slug"`
	Title      int     `json:"title"`
	Chapter    *string `json:"chapter,omitempty"`
	Subchapter *string `json:"subchapter,omitempty"`
	Part       *string `json:"part,omitempty"`
	Section    *string `json:"section,omitempty"`
}

// Tier returns the most specific tier present, evaluated section → part → chapter.
// A reference carrying none of them resolves to TierTitle.
func (r *CfrReference) Tier() Tier {
	switch {
	case present(r.Section):
		return TierSection
	case present(r.Part):
		return TierPart
	case present(r.Chapter):
		return TierChapter
	default:
		return TierTitle
	}
}

func present(s *string) bool {
	return s != nil && *s != ""
}

// Correction is one eCFR correction event.
// Year and LagDays are derived by Derive and never read from the source.
type Correction struct {
	ECFRID           int64      `json:"ecfr_id"`
	AgencySlug       string     `json:"agency_slug"`
	CFRReference     string     `json:"cfr_reference"`
	Title            int        `json:"title"`
	Chapter          *string    `json:"chapter,omitempty"`
	Part             *string    `json:"part,omitempty"`
	Section          *string    `json:"section,omitempty"`
	CorrectiveAction string     `json:"corrective_action"`
	ErrorOccurred    time.Time  `json:"error_occurred"`
	ErrorCorrected   *time.Time `json:"error_corrected,omitempty"`
	FRCitation       string     `json:"fr_citation,omitempty"`
	Year             int        `json:"year"`
	LagDays          *int       `json:"lag_days,omitempty"` // nil when uncorrected
}

// Derive fills Year and LagDays from the two dates.
// Lag is whole calendar days between the dates.
func (c *Correction) Derive() {
	c.Year = c.EventDate().Year()
	if c.ErrorCorrected == nil {
		c.LagDays = nil
		return
	}

	lag := DaysBetween(c.ErrorOccurred, *c.ErrorCorrected)
	c.LagDays = &lag
}

// EventDate is the date a correction is filed under: corrected if resolved, else occurred
func (c *Correction) EventDate() time.Time {
	if c.ErrorCorrected != nil {
		return *c.ErrorCorrected
	}
	return c.ErrorOccurred
}

// IsResolved reports whether the correction has a correction date
func (c *Correction) IsResolved() bool {
	return c.ErrorCorrected != nil
}

// IsChronological reports whether the correction date is not before the occurrence date
func (c *Correction) IsChronological() bool {
	return c.ErrorCorrected == nil || !c.ErrorCorrected.Before(c.ErrorOccurred)
}

// DaysBetween counts calendar days from a to b using their UTC dates
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Corpus is the validated input of the metrics stage (S0 → S1)
// ⭐ SSOT: S0 → S1 handoff
type Corpus struct {
	Agencies      []Agency       `json:"agencies"`
	CfrReferences []CfrReference `json:"cfr_references"`
	Corrections   []Correction   `json:"corrections"`
}

// AgencySlugs returns the set of known agency slugs
func (c *Corpus) AgencySlugs() map[string]struct{} {
	slugs := make(map[string]struct{}, len(c.Agencies))
	for _, a := range c.Agencies {
		slugs[a.Slug] = struct{}{}
	}
	return slugs
}

// IngestReport summarizes one S0 run
type IngestReport struct {
	Sources                 []SourceResult `json:"sources"`
	Agencies                int            `json:"agencies"`
	CfrReferences           int            `json:"cfr_references"`
	Corrections             int            `json:"corrections"`
	DroppedReferences       int            `json:"dropped_references"`       // unknown agency slug
	UnattributedCorrections int            `json:"unattributed_corrections"` // no owning agency
	DuplicateCorrections    int            `json:"duplicate_corrections"`
	InvalidCorrections      int            `json:"invalid_corrections"` // corrected before occurred
}

// Dropped is the total of every per-row defect
func (r *IngestReport) Dropped() int {
	return r.DroppedReferences + r.UnattributedCorrections + r.DuplicateCorrections + r.InvalidCorrections
}

// Changed reports whether any source was re-ingested
func (r *IngestReport) Changed() bool {
	for _, s := range r.Sources {
		if s.Ingested {
			return true
		}
	}
	return false
}

// SourceResult records the checksum gate outcome for one source
type SourceResult struct {
	SourceID string `json:"source_id"`
	Location string `json:"location"`
	Digest   string `json:"digest"`
	Ingested bool   `json:"ingested"` // false when the digest matched the stored one
	Rows     int    `json:"rows"`
}
