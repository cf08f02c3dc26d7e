package config

import (
	"path/filepath"
	"slices"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The thresholds mirror the behavior the crawl was tuned with; changing them
// changes which URLs are admitted and which pages count as duplicates.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "crawlcore"

	// DefaultSpecialHost is a host outside the allowed suffixes that is
	// admitted only below DefaultSpecialPathPrefix.
	DefaultSpecialHost = "today.uci.edu"

	// DefaultSpecialPathPrefix restricts DefaultSpecialHost to the department pages.
	DefaultSpecialPathPrefix = "/department/information_computer_sciences"

	// DefaultMonitoredDomain is the suffix whose hosts get subdomain counters.
	DefaultMonitoredDomain = "ics.uci.edu"

	// DefaultMaxURLLength rejects runaway parameterized URLs.
	DefaultMaxURLLength = 200

	// DefaultMaxPathSegments is the segment count above which repeated
	// segments mark a recursive path trap. /a/b/a/b is fine, deeper repeats are not.
	DefaultMaxPathSegments = 6

	// DefaultMaxQueryParams is the query parameter count that rejects a URL.
	DefaultMaxQueryParams = 5

	// DefaultURLSimilarityThreshold is the character-level ratio at which a URL
	// counts as a near copy of a recently admitted one.
	DefaultURLSimilarityThreshold = 0.9

	// DefaultRecentURLCapacity is the number of admitted URLs remembered for
	// the similarity rule.
	DefaultRecentURLCapacity = 400

	// DefaultContentSimilarityThreshold is the Jaccard similarity at which a
	// page counts as a near-duplicate.
	DefaultContentSimilarityThreshold = 0.9

	// DefaultRecentPageCapacity is the number of pages remembered for
	// near-duplicate detection.
	DefaultRecentPageCapacity = 50

	// DefaultMinTextLength is the visible-text length, in characters, below
	// which a page is treated as low-information.
	DefaultMinTextLength = 200

	// DefaultCheckpointEvery is the number of processed pages between checkpoints.
	DefaultCheckpointEvery = 50

	// DefaultCheckpointFile is the checkpoint file name inside XDGDataDir.
	DefaultCheckpointFile = "report.db"

	// FormatSQLite stores checkpoints as a single SQLite database file.
	FormatSQLite = "sqlite"

	// FormatJSON stores checkpoints as a single JSON document.
	FormatJSON = "json"

	// DefaultCheckpointFormat is the checkpoint storage format.
	DefaultCheckpointFormat = FormatSQLite

	// DefaultConcurrency is the number of replay workers.
	// Workers only parse in parallel; every state change is serialized.
	DefaultConcurrency = 4

	// DefaultTopWords is the number of words listed in reports.
	DefaultTopWords = 50
)

// DefaultAllowedDomains returns the host suffixes the crawl may visit.
func DefaultAllowedDomains() []string {
	return []string{"ics.uci.edu", "cs.uci.edu", "informatics.uci.edu", "stat.uci.edu"}
}

// DefaultBlockedPathKeywords returns path substrings that mark
// authentication and administration pages.
func DefaultBlockedPathKeywords() []string {
	return []string{"login", "signin", "logout", "admin", "account", "auth"}
}

// DefaultDisallowedExtensions returns file extensions of resources that are
// not HTML pages.
func DefaultDisallowedExtensions() []string {
	return []string{
		"css", "js", "bmp", "gif", "jpg", "jpeg", "ico",
		"png", "tif", "tiff", "mid", "mp2", "mp3", "mp4",
		"wav", "avi", "mov", "mpeg", "ram", "m4v", "mkv", "ogg", "ogv", "pdf",
		"ps", "eps", "tex", "ppt", "pptx", "doc", "docx", "xls", "xlsx", "names",
		"data", "dat", "exe", "bz2", "tar", "msi", "bin", "7z", "psd", "dmg", "iso",
		"epub", "dll", "cnf", "tgz", "sha1",
		"thmx", "mso", "arff", "rtf", "jar", "csv",
		"rm", "smil", "wmv", "swf", "wma", "zip", "rar", "gz",
	}
}

// DefaultQueryTrapKeywords returns query substrings that mark calendars,
// pagination, session ids and sort/offset/limit parameters.
func DefaultQueryTrapKeywords() []string {
	return []string{
		"calendar", "ical", "month", "year", "format=xml",
		"replytocom", "sessionid", "sort=", "page=", "offset=",
		"limit=", "view=grid", "eventdisplay",
	}
}

// Config holds all configuration options for crawlcore.
// This struct is populated from defaults, the config file and CLI flags, and
// passed through the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., FilterConfig, CheckpointConfig) for simplicity. Every component reads
// only the fields it needs.
type Config struct {
	// AllowedDomains are host suffixes the crawl may visit.
	// A host matches when it equals a suffix or ends with "." + suffix.
	AllowedDomains []string

	// SpecialHost is admitted only when the path starts with SpecialPathPrefix.
	SpecialHost string

	// SpecialPathPrefix is the required path prefix for SpecialHost.
	SpecialPathPrefix string

	// MonitoredDomain restricts which discovered hosts get subdomain counters.
	MonitoredDomain string

	// BlockedPathKeywords are case-insensitive path substrings that reject a URL.
	BlockedPathKeywords []string

	// DisallowedExtensions are file extensions, without the dot, that reject a URL.
	DisallowedExtensions []string

	// QueryTrapKeywords are case-insensitive query substrings that reject a URL.
	QueryTrapKeywords []string

	// MaxURLLength is the longest admitted URL in characters.
	MaxURLLength int

	// MaxPathSegments is the segment count above which repeated segments reject a URL.
	MaxPathSegments int

	// MaxQueryParams is the query parameter count at which a URL is rejected.
	MaxQueryParams int

	// URLSimilarityThreshold is the ratio in [0, 1] at which a URL is too
	// similar to a recently admitted one.
	URLSimilarityThreshold float64

	// RecentURLCapacity bounds the recently admitted URL window.
	RecentURLCapacity int

	// ContentSimilarityThreshold is the Jaccard similarity in [0, 1] at which
	// a page is a near-duplicate.
	ContentSimilarityThreshold float64

	// RecentPageCapacity bounds the recently accepted page window.
	RecentPageCapacity int

	// MinTextLength is the minimum visible-text length of an informative page.
	MinTextLength int

	// CheckpointEvery is the number of processed pages between checkpoints.
	CheckpointEvery int

	// CheckpointPath is the checkpoint file location.
	// Defaults to the XDG data directory (~/.local/share/crawlcore/report.db on Linux).
	CheckpointPath string

	// CheckpointFormat is FormatSQLite or FormatJSON.
	CheckpointFormat string

	// Concurrency is the number of replay workers.
	Concurrency int

	// TopWords is the number of most frequent words listed in reports.
	TopWords int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .crawlcore in the current directory
	// and then in the user's home directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because almost every default is non-zero.
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		AllowedDomains:             DefaultAllowedDomains(),
		SpecialHost:                DefaultSpecialHost,
		SpecialPathPrefix:          DefaultSpecialPathPrefix,
		MonitoredDomain:            DefaultMonitoredDomain,
		BlockedPathKeywords:        DefaultBlockedPathKeywords(),
		DisallowedExtensions:       DefaultDisallowedExtensions(),
		QueryTrapKeywords:          DefaultQueryTrapKeywords(),
		MaxURLLength:               DefaultMaxURLLength,
		MaxPathSegments:            DefaultMaxPathSegments,
		MaxQueryParams:             DefaultMaxQueryParams,
		URLSimilarityThreshold:     DefaultURLSimilarityThreshold,
		RecentURLCapacity:          DefaultRecentURLCapacity,
		ContentSimilarityThreshold: DefaultContentSimilarityThreshold,
		RecentPageCapacity:         DefaultRecentPageCapacity,
		MinTextLength:              DefaultMinTextLength,
		CheckpointEvery:            DefaultCheckpointEvery,
		CheckpointPath:             DefaultCheckpointPath(),
		CheckpointFormat:           DefaultCheckpointFormat,
		Concurrency:                DefaultConcurrency,
		TopWords:                   DefaultTopWords,
	}
}

// DefaultCheckpointPath returns the checkpoint location inside XDGDataDir.
func DefaultCheckpointPath() string {
	return filepath.Join(XDGDataDir(), DefaultCheckpointFile)
}

// XDGDataDir returns the XDG data directory for crawlcore.
// On Linux: ~/.local/share/crawlcore
// On macOS: ~/Library/Application Support/crawlcore
// On Windows: %LOCALAPPDATA%\crawlcore
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for crawlcore.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// We return the first error found because fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	if len(c.AllowedDomains) == 0 && c.SpecialHost == "" {
		return ErrNoAllowedDomain
	}
	if c.MaxURLLength <= 0 {
		return ErrInvalidMaxURLLength
	}
	if c.MaxPathSegments <= 0 {
		return ErrInvalidMaxPathSegments
	}
	if c.MaxQueryParams <= 0 {
		return ErrInvalidMaxQueryParams
	}
	if !validRatio(c.URLSimilarityThreshold) || !validRatio(c.ContentSimilarityThreshold) {
		return ErrInvalidThreshold
	}
	if c.RecentURLCapacity <= 0 || c.RecentPageCapacity <= 0 {
		return ErrInvalidCapacity
	}
	if c.MinTextLength < 0 {
		return ErrInvalidMinTextLength
	}
	if c.CheckpointEvery <= 0 {
		return ErrInvalidCheckpointEvery
	}
	if c.CheckpointPath == "" {
		return ErrNoCheckpointPath
	}
	if !slices.Contains([]string{FormatSQLite, FormatJSON}, c.CheckpointFormat) {
		return ErrInvalidCheckpointFormat
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.TopWords < 0 {
		return ErrInvalidTopWords
	}
	return nil
}

func validRatio(v float64) bool {
	return v > 0 && v <= 1
}
