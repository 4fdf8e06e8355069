package scoringconfig

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRepoDefault(t *testing.T) {
	path := "../../config/scoring/default.yaml"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)

	// The shipped file must match the built-in policy exactly
	assert.Equal(t, Default(), cfg)

	hash, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	defaultHash, err := Hash(Default())
	require.NoError(t, err)
	assert.Equal(t, defaultHash, hash)
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, data, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	yamlData := []byte(`
meta:
  config_id: x
  version: "1"
word_count:
  section_words: 500
  part_words: 2000
  chapter_words: 10000
  title_words: 50000
  paragraph_words: 100
`)

	_, err := Parse(yamlData)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paragraph_words")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"default is valid", func(c *Config) {}, ""},
		{"missing id", func(c *Config) { c.Meta.ConfigID = "" }, "meta.config_id"},
		{"zero section words", func(c *Config) { c.WordCount.SectionWords = 0 }, "word_count.section_words"},
		{"tiers out of order", func(c *Config) { c.WordCount.PartWords = 20_000 }, "word_count"},
		{"zero rvi scale", func(c *Config) { c.Volatility.RVIScale = 0 }, "volatility.rvi_scale"},
		{"weights off by 0.1", func(c *Config) { c.Composite.Size = 0.10 }, "composite"},
		{"negative weight", func(c *Config) { c.Composite.Size = -0.2; c.Composite.Corrections = 0.70 }, "composite"},
		{"grades not increasing", func(c *Config) { c.Grades.C = 0.30 }, "grades"},
		{"grade above one", func(c *Config) { c.Grades.D = 1.2 }, "grades"},
		{"negative report limit", func(c *Config) { c.Report.TopTitles = -1 }, "report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var vErr ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantErr, vErr.Field)
		})
	}
}

func TestDefaultCompositeWeightsSumToOne(t *testing.T) {
	// 0.30 + 0.25 + 0.20 + 0.25 is not exact in binary floating point
	assert.LessOrEqual(t, math.Abs(Default().Composite.Sum()-1.0), weightEpsilon)
}

func TestHashChangesWithPolicy(t *testing.T) {
	a, err := Hash(Default())
	require.NoError(t, err)

	changed := Default()
	changed.Volatility.RVIScale = 1_000
	b, err := Hash(changed)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestWarn(t *testing.T) {
	assert.Empty(t, Warn(Default()))

	cfg := Default()
	cfg.Volatility.RVIScale = 1_000
	cfg.Composite.Size = 0
	cfg.Composite.Corrections = 0.50

	warnings := Warn(cfg)
	require.Len(t, warnings, 2)
	assert.Equal(t, "NON_DEFAULT_RVI_SCALE", warnings[0].Code)
	assert.Equal(t, "ZERO_WEIGHT_DIMENSION", warnings[1].Code)
}

func TestValidateWeightsSum(t *testing.T) {
	tests := []struct {
		weights []float64
		target  float64
		valid   bool
	}{
		{[]float64{0.30, 0.25, 0.20, 0.25}, 1.0, true},
		{[]float64{0.5, 0.5}, 1.0, true},
		{[]float64{0.3, 0.3, 0.3}, 1.0, false},
		{[]float64{}, 1.0, false},
	}

	for _, tc := range tests {
		err := validateWeightsSum(tc.weights, tc.target, weightEpsilon)
		if tc.valid {
			assert.NoError(t, err, "%v", tc.weights)
		} else {
			assert.Error(t, err, "%v", tc.weights)
		}
	}
}
