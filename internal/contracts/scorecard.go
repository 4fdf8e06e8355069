package contracts

// Grade is the activity grade derived from the corrections percentile
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Scorecard is one ranked agency produced by S2
// ⭐ SSOT: S2 → S3 handoff
type Scorecard struct {
	AgencySlug         string  `json:"agency_slug"`
	CorrectionsRank    int     `json:"corrections_rank"`    // 1-based competition rank
	RVIRank            int     `json:"rvi_rank"`            // 1-based competition rank
	SizeRank           int     `json:"size_rank"`           // 1-based competition rank
	ResponsivenessRank int     `json:"responsiveness_rank"` // 1-based competition rank
	CompositeScore     float64 `json:"composite_score"`     // 0-100, 2 dp
	ActivityGrade      Grade   `json:"activity_grade"`
}

// IsTopRanked checks if the agency is within the top n by corrections
func (s *Scorecard) IsTopRanked(n int) bool {
	return s.CorrectionsRank <= n && s.CorrectionsRank > 0
}
