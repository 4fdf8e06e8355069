package ecfr

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
)

// MaxTitle is the highest CFR title number
const MaxTitle = 50

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// ParseStats counts rows seen and rows skipped while parsing one document
type ParseStats struct {
	Rows    int
	Skipped int
}

// ParseAgencies flattens the agency tree depth-first.
// Children inherit the parent slug; a repeated slug keeps its first occurrence.
func ParseAgencies(data []byte) ([]contracts.Agency, []contracts.CfrReference, ParseStats, error) {
	var doc AgenciesResponse
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, ParseStats{}, fmt.Errorf("decode agencies: %w", err)
	}

	var (
		agencies []contracts.Agency
		refs     []contracts.CfrReference
		stats    ParseStats
		seen     = make(map[string]struct{})
	)

	var walk func(nodes []AgencyNode, parent string)
	walk = func(nodes []AgencyNode, parent string) {
		for _, n := range nodes {
			stats.Rows++
			slug := strings.TrimSpace(n.Slug)
			if slug == "" {
				stats.Skipped++
				continue
			}
			if _, dup := seen[slug]; dup {
				stats.Skipped++
				continue
			}
			seen[slug] = struct{}{}

			agencies = append(agencies, contracts.Agency{
				Slug:               slug,
				Name:               n.Name,
				ShortName:          n.ShortName,
				ParentSlug:         parent,
				TotalCFRReferences: len(n.CFRReferences),
				ChildCount:         len(n.Children),
			})

			for _, r := range n.CFRReferences {
				refs = append(refs, contracts.CfrReference{
					AgencySlug: slug,
					Title:      int(r.Title),
					Chapter:    clean(r.Chapter),
					Subchapter: clean(r.Subchapter),
					Part:       clean(r.Part),
					Section:    clean(r.Section),
				})
			}

			walk(n.Children, slug)
		}
	}
	walk(doc.Agencies, "")

	return agencies, refs, stats, nil
}

// ParseCorrections converts correction records into staging rows.
// Rows with no id, no valid title or an unparseable occurrence date are skipped.
// Year and lag are derived later, after chronology is validated.
func ParseCorrections(data []byte) ([]contracts.Correction, ParseStats, error) {
	var doc CorrectionsResponse
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, ParseStats{}, fmt.Errorf("decode corrections: %w", err)
	}

	out := make([]contracts.Correction, 0, len(doc.Corrections))
	var stats ParseStats

	for _, rec := range doc.Corrections {
		stats.Rows++
		c, ok := toCorrection(rec)
		if !ok {
			stats.Skipped++
			continue
		}
		out = append(out, c)
	}

	return out, stats, nil
}

func toCorrection(rec CorrectionRecord) (contracts.Correction, bool) {
	if rec.ID <= 0 || rec.ErrorOccurred == nil {
		return contracts.Correction{}, false
	}

	occurred, err := parseDate(*rec.ErrorOccurred)
	if err != nil {
		return contracts.Correction{}, false
	}

	c := contracts.Correction{
		ECFRID:           rec.ID,
		AgencySlug:       strings.TrimSpace(rec.AgencySlug),
		Title:            int(rec.Title),
		CorrectiveAction: rec.CorrectiveAction,
		ErrorOccurred:    occurred,
		FRCitation:       rec.FRCitation,
	}

	if rec.ErrorCorrected != nil && strings.TrimSpace(*rec.ErrorCorrected) != "" {
		corrected, err := parseDate(*rec.ErrorCorrected)
		if err != nil {
			return contracts.Correction{}, false
		}
		c.ErrorCorrected = &corrected
	}

	// First reference carries the location used for attribution
	if len(rec.CFRReferences) > 0 {
		ref := rec.CFRReferences[0]
		c.CFRReference = ref.CFRReference
		c.Chapter = clean(ref.Hierarchy.Chapter)
		c.Part = clean(ref.Hierarchy.Part)
		c.Section = clean(ref.Hierarchy.Section)
		if c.Title == 0 {
			c.Title = int(ref.Hierarchy.Title)
		}
	}

	if c.Title < 1 || c.Title > MaxTitle {
		return contracts.Correction{}, false
	}

	return c, true
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func clean(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
