package scoringconfig

import (
	"errors"
	"fmt"
	"math"
)

// ValidationError is a fatal config error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning is a non-fatal recommendation
type Warning struct {
	Code    string
	Message string
}

const weightEpsilon = 1e-6

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ConfigID == "" {
		return ValidationError{"meta.config_id", "required"}
	}

	// === WordCount ===
	wc := cfg.WordCount
	if wc.SectionWords <= 0 {
		return ValidationError{"word_count.section_words", "must be > 0"}
	}
	if !(wc.SectionWords < wc.PartWords && wc.PartWords < wc.ChapterWords && wc.ChapterWords < wc.TitleWords) {
		return ValidationError{"word_count", "must increase section < part < chapter < title"}
	}

	// === Volatility ===
	if cfg.Volatility.RVIScale <= 0 {
		return ValidationError{"volatility.rvi_scale", "must be > 0"}
	}

	// === Composite ===
	weights := []float64{
		cfg.Composite.Corrections,
		cfg.Composite.RVI,
		cfg.Composite.Size,
		cfg.Composite.Responsiveness,
	}
	for _, w := range weights {
		if w < 0 {
			return ValidationError{"composite", "weights must be >= 0"}
		}
	}
	if err := validateWeightsSum(weights, 1.0, weightEpsilon); err != nil {
		return ValidationError{"composite", err.Error()}
	}

	// === Grades ===
	g := cfg.Grades
	if !(g.A > 0 && g.A < g.B && g.B < g.C && g.C < g.D && g.D <= 1) {
		return ValidationError{"grades", "must satisfy 0 < a < b < c < d <= 1"}
	}

	// === Report ===
	if cfg.Report.TopAgencies < 0 || cfg.Report.TopTitles < 0 || cfg.Report.RecentYears < 0 {
		return ValidationError{"report", "limits must be >= 0"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Volatility.RVIScale != Default().Volatility.RVIScale {
		warnings = append(warnings, Warning{
			Code:    "NON_DEFAULT_RVI_SCALE",
			Message: "rvi values are not comparable with snapshots built on the default scale",
		})
	}

	c := cfg.Composite
	if c.Corrections == 0 || c.RVI == 0 || c.Size == 0 || c.Responsiveness == 0 {
		warnings = append(warnings, Warning{
			Code:    "ZERO_WEIGHT_DIMENSION",
			Message: "a composite dimension has zero weight and no longer affects the score",
		})
	}

	return warnings
}

// === Helper Functions ===

func validateWeightsSum(weights []float64, target float64, epsilon float64) error {
	if len(weights) == 0 {
		return errors.New("must not be empty")
	}
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-target) > epsilon {
		return fmt.Errorf("must sum to %.2f, got %.4f", target, sum)
	}
	return nil
}
