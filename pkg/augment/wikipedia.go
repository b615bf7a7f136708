package augment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultWikipediaURL     = "https://en.wikipedia.org/w/api.php"
	DefaultWikipediaRESTURL = "https://en.wikipedia.org/api/rest_v1"
	DefaultUserAgent        = "chatrelay/1.0 (no-key)"
)

// Wikipedia searches the MediaWiki API.
type Wikipedia struct {
	APIURL     string
	RESTURL    string
	UserAgent  string
	HTTPClient *http.Client
}

var _ Searcher = (*Wikipedia)(nil)

// NewWikipedia creates a Wikipedia backend. Empty arguments select the
// English Wikipedia endpoints and the default user agent.
func NewWikipedia(apiURL, restURL, userAgent string) *Wikipedia {
	if apiURL == "" {
		apiURL = DefaultWikipediaURL
	}
	if restURL == "" {
		restURL = DefaultWikipediaRESTURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Wikipedia{
		APIURL:     apiURL,
		RESTURL:    strings.TrimRight(restURL, "/"),
		UserAgent:  userAgent,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title  string `json:"title"`
			PageID int64  `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
}

type wikiPagesResponse struct {
	Query struct {
		Pages map[string]struct {
			PageID  int64  `json:"pageid"`
			Title   string `json:"title"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
		} `json:"pages"`
	} `json:"query"`
}

type wikiSummary struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Search finds up to limit pages matching query and returns their intro
// extracts in search rank order.
func (w *Wikipedia) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	hits, err := w.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(hits.Query.Search) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(hits.Query.Search))
	for _, s := range hits.Query.Search {
		ids = append(ids, strconv.FormatInt(s.PageID, 10))
	}

	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts|info"},
		"inprop":      {"url"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"pageids":     {strings.Join(ids, "|")},
		"format":      {"json"},
	}
	var pages wikiPagesResponse
	if err := w.getJSON(ctx, w.APIURL+"?"+params.Encode(), &pages); err != nil {
		return nil, fmt.Errorf("fetching page details: %w", err)
	}

	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		p, ok := pages.Query.Pages[id]
		if !ok {
			continue
		}
		results = append(results, Result{Title: p.Title, URL: p.FullURL, Extract: p.Extract})
	}
	return results, nil
}

// Summaries finds up to limit pages matching query and fetches each page's
// REST summary concurrently. Any failed fetch fails the whole call.
func (w *Wikipedia) Summaries(ctx context.Context, query string, limit int) ([]Result, error) {
	hits, err := w.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	titles := hits.Query.Search
	if len(titles) > limit {
		titles = titles[:limit]
	}
	results := make([]Result, len(titles))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range titles {
		g.Go(func() error {
			var sum wikiSummary
			u := w.RESTURL + "/page/summary/" + url.PathEscape(s.Title)
			if err := w.getJSON(gctx, u, &sum); err != nil {
				return fmt.Errorf("fetching summary for %q: %w", s.Title, err)
			}
			results[i] = Result{Title: sum.Title, URL: sum.ContentURLs.Desktop.Page, Extract: sum.Extract}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (w *Wikipedia) search(ctx context.Context, query string, limit int) (*wikiSearchResponse, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"format":   {"json"},
		"srlimit":  {strconv.Itoa(limit)},
	}
	var resp wikiSearchResponse
	if err := w.getJSON(ctx, w.APIURL+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	return &resp, nil
}

func (w *Wikipedia) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", w.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wikipedia returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
