package query

import (
	"fmt"
	"strings"

	"github.com/santara-labs/statuta/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength  = 1024
	DefaultMaxPages = 5
	MaxMaxPages     = 20
	DefaultResults  = 10
	MaxResults      = 50
)

// Verbosity levels for synthesized answers.
const (
	VerbosityConcise       = "concise"
	VerbosityDetailed      = "detailed"
	VerbosityComprehensive = "comprehensive"
)

// Answer format styles.
const (
	FormatSimple    = "simple"
	FormatLegal     = "legal"
	FormatTechnical = "technical"
)

var (
	validVerbosity = map[string]bool{
		VerbosityConcise: true, VerbosityDetailed: true, VerbosityComprehensive: true,
	}
	validFormat = map[string]bool{
		FormatSimple: true, FormatLegal: true, FormatTechnical: true,
	}
)

// Preferences controls how the answer is synthesized.
type Preferences struct {
	Verbosity string
	Format    string
	Citations bool
}

// DefaultPreferences returns the preferences applied when a request
// carries none: detailed verbosity, simple format, citations on.
func DefaultPreferences() Preferences {
	return Preferences{
		Verbosity: VerbosityDetailed,
		Format:    FormatSimple,
		Citations: true,
	}
}

// Query is a validated search query.
type Query struct {
	text       string
	maxPages   int
	maxResults int
	prefs      Preferences
}

// New validates and normalizes search parameters.
// Defaults: maxPages=5, maxResults=10, preferences=DefaultPreferences.
// Unknown verbosity or format values are rejected, blank ones defaulted.
func New(text string, maxPages, maxResults int, prefs Preferences) (Query, error) {
	if strings.TrimSpace(text) == "" {
		return Query{}, fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if maxPages > MaxMaxPages {
		maxPages = MaxMaxPages
	}
	if maxResults <= 0 {
		maxResults = DefaultResults
	}
	if maxResults > MaxResults {
		maxResults = MaxResults
	}
	if prefs.Verbosity == "" {
		prefs.Verbosity = VerbosityDetailed
	}
	if !validVerbosity[prefs.Verbosity] {
		return Query{}, fmt.Errorf("%w: invalid verbosity %q", domain.ErrInvalidQuery, prefs.Verbosity)
	}
	if prefs.Format == "" {
		prefs.Format = FormatSimple
	}
	if !validFormat[prefs.Format] {
		return Query{}, fmt.Errorf("%w: invalid format %q", domain.ErrInvalidQuery, prefs.Format)
	}

	return Query{
		text:       text,
		maxPages:   maxPages,
		maxResults: maxResults,
		prefs:      prefs,
	}, nil
}

// Text returns the search query text.
func (q *Query) Text() string { return q.text }

// MaxPages returns the number of listing pages to walk.
func (q *Query) MaxPages() int { return q.maxPages }

// MaxResults returns the maximum results to return.
func (q *Query) MaxResults() int { return q.maxResults }

// Preferences returns the answer formatting preferences.
func (q *Query) Preferences() Preferences { return q.prefs }
