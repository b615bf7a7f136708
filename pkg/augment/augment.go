package augment

import (
	"context"
	"fmt"
	"strings"

	"github.com/rhuss/chatrelay/pkg/debug"
	"github.com/rhuss/chatrelay/pkg/observability"
)

// MaxExtractRunes bounds the length of a single formatted excerpt.
const MaxExtractRunes = 800

// DefaultLimit is the number of candidates requested per lookup.
const DefaultLimit = 3

// Result is a single reference entry.
type Result struct {
	Title   string
	URL     string
	Extract string
}

// Searcher is implemented by lookup backends.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Augmenter returns formatted context for a query, or "" when none is
// available. Implementations must not fail the caller.
type Augmenter interface {
	Lookup(ctx context.Context, query string) string
}

// Noop never returns context.
type Noop struct{}

// Lookup implements Augmenter.
func (Noop) Lookup(context.Context, string) string { return "" }

// SearchAugmenter adapts a Searcher into an Augmenter.
type SearchAugmenter struct {
	// Backend labels metrics and log entries.
	Backend  string
	Searcher Searcher
	Limit    int
}

var _ Augmenter = (*SearchAugmenter)(nil)

// Lookup runs a search and formats the results. Any failure is logged at
// debug level and reported as "".
func (a *SearchAugmenter) Lookup(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	limit := a.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	results, err := a.Searcher.Search(ctx, query, limit)
	if err != nil {
		debug.Log("augment", "lookup failed", "backend", a.Backend, "error", err)
		observability.AugmentLookupsTotal.WithLabelValues(a.Backend, "error").Inc()
		return ""
	}

	formatted := FormatContext(results)
	if formatted == "" {
		observability.AugmentLookupsTotal.WithLabelValues(a.Backend, "empty").Inc()
		return ""
	}

	debug.Log("augment", "lookup hit", "backend", a.Backend, "results", len(results))
	observability.AugmentLookupsTotal.WithLabelValues(a.Backend, "hit").Inc()
	return formatted
}

// FormatContext renders results as markdown list entries separated by
// blank lines. Excerpts are cut to MaxExtractRunes. Entries without a
// title are dropped.
func FormatContext(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		if r.Title == "" {
			continue
		}
		fmt.Fprintf(&b, "\n- [%s](%s): %s\n", r.Title, r.URL, truncateRunes(r.Extract, MaxExtractRunes))
	}
	return strings.TrimSpace(b.String())
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Config selects and configures a backend.
type Config struct {
	// Backend is one of "wikipedia", "searxng" or "none".
	Backend string

	// URL is the backend endpoint. For wikipedia it is the MediaWiki
	// api.php URL; for searxng the instance base URL.
	URL string

	// RESTURL is the Wikipedia REST API root used for page summaries.
	RESTURL string

	UserAgent string
	Limit     int
}

// New builds the Augmenter described by cfg.
func New(cfg Config) (Augmenter, error) {
	switch cfg.Backend {
	case "", "none":
		return Noop{}, nil
	case "wikipedia":
		return &SearchAugmenter{
			Backend:  "wikipedia",
			Searcher: NewWikipedia(cfg.URL, cfg.RESTURL, cfg.UserAgent),
			Limit:    cfg.Limit,
		}, nil
	case "searxng":
		if cfg.URL == "" {
			return nil, fmt.Errorf("augment: searxng backend requires a url")
		}
		return &SearchAugmenter{
			Backend:  "searxng",
			Searcher: NewSearXNG(cfg.URL),
			Limit:    cfg.Limit,
		}, nil
	default:
		return nil, fmt.Errorf("augment: unknown backend %q", cfg.Backend)
	}
}
