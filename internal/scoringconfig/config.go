package scoringconfig

// Config holds every policy constant of the metrics and ranking stages.
// Its hash is stored on each snapshot so a published scorecard can be reproduced.
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	WordCount  WordCount  `yaml:"word_count" json:"word_count"`
	Volatility Volatility `yaml:"volatility" json:"volatility"`
	Composite  Composite  `yaml:"composite" json:"composite"`
	Grades     Grades     `yaml:"grades" json:"grades"`
	Report     Report     `yaml:"report" json:"report"`
}

// Meta identifies the config
type Meta struct {
	ConfigID string `yaml:"config_id" json:"config_id"`
	Version  string `yaml:"version" json:"version"`
}

// WordCount S1: tiered word estimate per CFR reference
type WordCount struct {
	SectionWords int64 `yaml:"section_words" json:"section_words"`
	PartWords    int64 `yaml:"part_words" json:"part_words"`
	ChapterWords int64 `yaml:"chapter_words" json:"chapter_words"`
	TitleWords   int64 `yaml:"title_words" json:"title_words"` // also the fallback for references with no tier
}

// Volatility S1: RVI normalization
type Volatility struct {
	RVIScale float64 `yaml:"rvi_scale" json:"rvi_scale"` // corrections per RVIScale estimated words
}

// Composite S2: weights of the four rank fractions, sum = 1.0
type Composite struct {
	Corrections    float64 `yaml:"corrections" json:"corrections"`
	RVI            float64 `yaml:"rvi" json:"rvi"`
	Size           float64 `yaml:"size" json:"size"`
	Responsiveness float64 `yaml:"responsiveness" json:"responsiveness"`
}

// Sum returns the total weight
func (c Composite) Sum() float64 {
	return c.Corrections + c.RVI + c.Size + c.Responsiveness
}

// Grades S2: upper bounds of corrections_rank/N per grade, anything above D is F
type Grades struct {
	A float64 `yaml:"a" json:"a"`
	B float64 `yaml:"b" json:"b"`
	C float64 `yaml:"c" json:"c"`
	D float64 `yaml:"d" json:"d"`
}

// Report controls the summary report and has no effect on published tables
type Report struct {
	TopAgencies int `yaml:"top_agencies" json:"top_agencies"`
	TopTitles   int `yaml:"top_titles" json:"top_titles"`
	RecentYears int `yaml:"recent_years" json:"recent_years"`
}

// Default returns the built-in scoring policy
func Default() *Config {
	return &Config{
		Meta: Meta{
			ConfigID: "ecfr_scorecard_default",
			Version:  "1.0.0",
		},
		WordCount: WordCount{
			SectionWords: 500,
			PartWords:    2_000,
			ChapterWords: 10_000,
			TitleWords:   50_000,
		},
		Volatility: Volatility{
			RVIScale: 100_000,
		},
		Composite: Composite{
			Corrections:    0.30,
			RVI:            0.25,
			Size:           0.20,
			Responsiveness: 0.25,
		},
		Grades: Grades{
			A: 0.20,
			B: 0.40,
			C: 0.60,
			D: 0.80,
		},
		Report: Report{
			TopAgencies: 10,
			TopTitles:   10,
			RecentYears: 5,
		},
	}
}
