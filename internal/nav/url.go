// File: internal/nav/url.go
package nav

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/tinkertool/tinker/internal/errs"
)

// DefaultSearchEngine is the fallback search template. The {} placeholder is
// replaced with the URL-encoded query.
const DefaultSearchEngine = "https://www.google.com/search?q={}"

// schemePattern matches inputs that carry an explicit URI scheme prefix.
var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)

// ParsedURL is a validated absolute URL plus metadata about how it was
// derived from the raw input.
type ParsedURL struct {
	URL           *url.URL
	IsSecure      bool
	IsSearch      bool
	OriginalInput string
}

// DisplayForm returns the string presented to a UI: search queries show the
// original input, everything else the normalized URL.
func (p *ParsedURL) DisplayForm() string {
	if p.IsSearch {
		return "\U0001F50D " + p.OriginalInput
	}
	return p.URL.String()
}

// URLManager normalizes raw address-bar input into absolute URLs, falling
// back to a configurable search engine for free-text queries.
type URLManager struct {
	mu           sync.RWMutex
	searchEngine string
	searchHost   string
	searchPath   string
}

// NewURLManager builds a manager around the given search template; an empty
// template selects DefaultSearchEngine.
func NewURLManager(searchEngine string) (*URLManager, error) {
	if searchEngine == "" {
		searchEngine = DefaultSearchEngine
	}
	m := &URLManager{}
	if err := m.SetSearchEngine(searchEngine); err != nil {
		return nil, err
	}
	return m, nil
}

// SetSearchEngine replaces the search template. The template must contain the
// literal {} placeholder and must produce a parseable URL.
func (m *URLManager) SetSearchEngine(template string) error {
	if !strings.Contains(template, "{}") {
		return &errs.InvalidURLError{
			Input:  template,
			Reason: "search engine template must contain the {} placeholder",
		}
	}
	probe, err := url.Parse(strings.Replace(template, "{}", "test", 1))
	if err != nil || probe.Host == "" {
		return &errs.InvalidURLError{
			Input:  template,
			Reason: "search engine template is not a valid URL",
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchEngine = template
	m.searchHost = probe.Host
	m.searchPath = probe.Path
	return nil
}

// SearchEngine returns the current search template.
func (m *URLManager) SearchEngine() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.searchEngine
}

// SearchURL substitutes the encoded query into the search template.
func (m *URLManager) SearchURL(query string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return strings.Replace(m.searchEngine, "{}", url.QueryEscape(query), 1)
}

// Parse normalizes raw input:
//
//  1. strict absolute parse (scheme and host present) is accepted as-is;
//  2. input without an explicit scheme is retried with https:// prepended;
//  3. anything left is treated as a search query.
//
// A strict failure on input that carries a scheme prefix fails outright
// rather than silently hiding a malformed URL behind a search.
func (m *URLManager) Parse(input string) (*ParsedURL, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, &errs.InvalidURLError{Input: input, Reason: "empty input"}
	}

	if u, err := url.Parse(trimmed); err == nil && u.Scheme != "" && u.Host != "" {
		return m.finish(u, trimmed, false), nil
	}

	if schemePattern.MatchString(trimmed) {
		return nil, &errs.InvalidURLError{
			Input:  trimmed,
			Reason: fmt.Sprintf("malformed URL with explicit scheme: %q", trimmed),
		}
	}

	if u, err := url.Parse("https://" + trimmed); err == nil && u.Host != "" {
		return m.finish(u, trimmed, false), nil
	}

	u, err := url.Parse(m.SearchURL(trimmed))
	if err != nil {
		return nil, &errs.InvalidURLError{Input: trimmed, Reason: err.Error()}
	}
	return m.finish(u, trimmed, true), nil
}

func (m *URLManager) finish(u *url.URL, input string, viaSearch bool) *ParsedURL {
	m.mu.RLock()
	host, path := m.searchHost, m.searchPath
	m.mu.RUnlock()

	return &ParsedURL{
		URL:           u,
		IsSecure:      u.Scheme == "https",
		IsSearch:      viaSearch || (u.Host == host && u.Path == path),
		OriginalInput: input,
	}
}
