package ecfr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AgenciesResponse is the /api/admin/v1/agencies.json document
type AgenciesResponse struct {
	Agencies []AgencyNode `json:"agencies"`
}

// AgencyNode is one agency with its nested sub-agencies
type AgencyNode struct {
	Name          string         `json:"name"`
	ShortName     string         `json:"short_name"`
	DisplayName   string         `json:"display_name"`
	SortableName  string         `json:"sortable_name"`
	Slug          string         `json:"slug"`
	Children      []AgencyNode   `json:"children"`
	CFRReferences []CFRReference `json:"cfr_references"`
}

// CFRReference is an agency's pointer into the CFR hierarchy
type CFRReference struct {
	Title      FlexInt `json:"title"`
	Chapter    *string `json:"chapter"`
	Subchapter *string `json:"subchapter"`
	Part       *string `json:"part"`
	Section    *string `json:"section"`
}

// CorrectionsResponse is the /api/admin/v1/corrections.json document
type CorrectionsResponse struct {
	Corrections []CorrectionRecord `json:"ecfr_corrections"`
}

// CorrectionRecord is one eCFR correction.
// AgencySlug is not part of the eCFR API; local files may set it to pin attribution.
type CorrectionRecord struct {
	ID               int64                 `json:"id"`
	CFRReferences    []CorrectionReference `json:"cfr_references"`
	CorrectiveAction string                `json:"corrective_action"`
	ErrorCorrected   *string               `json:"error_corrected"`
	ErrorOccurred    *string               `json:"error_occurred"`
	FRCitation       string                `json:"fr_citation"`
	Position         int                   `json:"position"`
	DisplayInTOC     bool                  `json:"display_in_toc"`
	Title            FlexInt               `json:"title"`
	Year             int                   `json:"year"`
	LastModified     string                `json:"last_modified"`
	AgencySlug       string                `json:"agency_slug,omitempty"`
}

// CorrectionReference is one CFR location touched by a correction
type CorrectionReference struct {
	CFRReference string    `json:"cfr_reference"`
	Hierarchy    Hierarchy `json:"hierarchy"`
}

// Hierarchy is the CFR path of a correction reference; every level is a string in the API
type Hierarchy struct {
	Title      FlexInt `json:"title"`
	Subtitle   *string `json:"subtitle"`
	Chapter    *string `json:"chapter"`
	Subchapter *string `json:"subchapter"`
	Part       *string `json:"part"`
	Subpart    *string `json:"subpart"`
	Section    *string `json:"section"`
}

// FlexInt accepts both 7 and "7"; null and "" decode to 0
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", s, err)
		}
		*f = FlexInt(n)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}
