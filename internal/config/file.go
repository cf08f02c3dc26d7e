package config

// File represents the structure of the .crawlcore configuration file.
// Every field is optional; zero values leave the corresponding Config
// default untouched.
type File struct {
	// Filter holds URL admission filter overrides.
	Filter FilterSection `yaml:"filter,omitempty"`

	// Dedup holds near-duplicate detection overrides.
	Dedup DedupSection `yaml:"dedup,omitempty"`

	// Checkpoint holds checkpoint writer overrides.
	Checkpoint CheckpointSection `yaml:"checkpoint,omitempty"`

	// Concurrency overrides the replay worker count.
	Concurrency int `yaml:"concurrency,omitempty"`

	// TopWords overrides the number of words listed in reports.
	TopWords int `yaml:"topWords,omitempty"`
}

// FilterSection configures the URL admission filter.
type FilterSection struct {
	AllowedDomains         []string `yaml:"allowedDomains,omitempty"`
	SpecialHost            string   `yaml:"specialHost,omitempty"`
	SpecialPathPrefix      string   `yaml:"specialPathPrefix,omitempty"`
	MonitoredDomain        string   `yaml:"monitoredDomain,omitempty"`
	BlockedPathKeywords    []string `yaml:"blockedPathKeywords,omitempty"`
	DisallowedExtensions   []string `yaml:"disallowedExtensions,omitempty"`
	QueryTrapKeywords      []string `yaml:"queryTrapKeywords,omitempty"`
	MaxURLLength           int      `yaml:"maxURLLength,omitempty"`
	MaxPathSegments        int      `yaml:"maxPathSegments,omitempty"`
	MaxQueryParams         int      `yaml:"maxQueryParams,omitempty"`
	URLSimilarityThreshold float64  `yaml:"urlSimilarityThreshold,omitempty"`
	RecentURLCapacity      int      `yaml:"recentURLCapacity,omitempty"`
}

// DedupSection configures content near-duplicate detection.
type DedupSection struct {
	SimilarityThreshold float64 `yaml:"similarityThreshold,omitempty"`
	RecentPageCapacity  int     `yaml:"recentPageCapacity,omitempty"`
	MinTextLength       int     `yaml:"minTextLength,omitempty"`
}

// CheckpointSection configures checkpoint persistence.
type CheckpointSection struct {
	Every  int    `yaml:"every,omitempty"`
	Path   string `yaml:"path,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Apply copies every non-zero field of the file onto cfg.
// Lists replace the defaults rather than extending them.
func (cf *File) Apply(cfg *Config) {
	if cf == nil || cfg == nil {
		return
	}

	f := cf.Filter
	setStrings(&cfg.AllowedDomains, f.AllowedDomains)
	setString(&cfg.SpecialHost, f.SpecialHost)
	setString(&cfg.SpecialPathPrefix, f.SpecialPathPrefix)
	setString(&cfg.MonitoredDomain, f.MonitoredDomain)
	setStrings(&cfg.BlockedPathKeywords, f.BlockedPathKeywords)
	setStrings(&cfg.DisallowedExtensions, f.DisallowedExtensions)
	setStrings(&cfg.QueryTrapKeywords, f.QueryTrapKeywords)
	setInt(&cfg.MaxURLLength, f.MaxURLLength)
	setInt(&cfg.MaxPathSegments, f.MaxPathSegments)
	setInt(&cfg.MaxQueryParams, f.MaxQueryParams)
	setFloat(&cfg.URLSimilarityThreshold, f.URLSimilarityThreshold)
	setInt(&cfg.RecentURLCapacity, f.RecentURLCapacity)

	setFloat(&cfg.ContentSimilarityThreshold, cf.Dedup.SimilarityThreshold)
	setInt(&cfg.RecentPageCapacity, cf.Dedup.RecentPageCapacity)
	setInt(&cfg.MinTextLength, cf.Dedup.MinTextLength)

	setInt(&cfg.CheckpointEvery, cf.Checkpoint.Every)
	setString(&cfg.CheckpointPath, cf.Checkpoint.Path)
	setString(&cfg.CheckpointFormat, cf.Checkpoint.Format)

	setInt(&cfg.Concurrency, cf.Concurrency)
	setInt(&cfg.TopWords, cf.TopWords)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setStrings(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = append([]string(nil), v...)
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}
