package catalog

import (
	"context"
	"strings"
)

// SearchParams filters the catalog. Zero values mean "no filter".
type SearchParams struct {
	Query        string
	Trigger      Trigger
	Complexity   Tier
	Category     string
	Source       string
	Active       *bool
	Integrations []string
	Limit        int
	Offset       int
}

// SearchResult is a stable offset/limit page over the filtered set.
type SearchResult struct {
	Artifacts []Artifact `json:"artifacts"`
	Total     int        `json:"total"`
	HasMore   bool       `json:"hasMore"`
}

const defaultSearchLimit = 20

// integrationAliases expands common shorthand query terms to the integration
// names providers actually use.
var integrationAliases = map[string][]string{
	"sheets":      {"google sheets"},
	"email":       {"gmail", "outlook", "smtp", "imap", "sendgrid"},
	"mail":        {"gmail", "outlook", "smtp"},
	"crm":         {"hubspot", "salesforce", "pipedrive"},
	"chat":        {"slack", "teams", "discord", "telegram"},
	"accounting":  {"datev", "lexoffice", "quickbooks", "xero"},
	"buchhaltung": {"datev", "lexoffice"},
	"storage":     {"dropbox", "google drive", "s3", "onedrive"},
	"database":    {"postgres", "mysql", "mongodb", "airtable"},
	"calendar":    {"google calendar", "outlook calendar"},
	"ai":          {"openai", "anthropic", "gemini", "ollama"},
}

// Search filters the catalog by free-text query, trigger, complexity,
// category, active flag and source, then paginates by offset/limit.
func (c *Cache) Search(ctx context.Context, params SearchParams) SearchResult {
	artifacts := c.Artifacts(ctx, params.Source)

	var filtered []Artifact
	for _, a := range artifacts {
		if !matches(a, params) {
			continue
		}
		filtered = append(filtered, a)
	}

	total := len(filtered)
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	if offset >= total {
		return SearchResult{Artifacts: []Artifact{}, Total: total, HasMore: false}
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return SearchResult{
		Artifacts: filtered[offset:end],
		Total:     total,
		HasMore:   end < total,
	}
}

func matches(a Artifact, params SearchParams) bool {
	if params.Trigger != "" && !strings.EqualFold(string(a.Trigger), string(params.Trigger)) {
		return false
	}
	if params.Complexity != "" && !strings.EqualFold(string(a.Complexity), string(params.Complexity)) {
		return false
	}
	if params.Category != "" && !strings.EqualFold(a.Category, params.Category) {
		return false
	}
	if params.Active != nil && a.Active != *params.Active {
		return false
	}
	for _, want := range params.Integrations {
		if !hasIntegration(a, want) {
			return false
		}
	}
	if params.Query != "" && !matchesQuery(a, params.Query) {
		return false
	}
	return true
}

// matchesQuery substring-matches the query (and its integration aliases)
// against title, summary, category, integrations and tags.
func matchesQuery(a Artifact, query string) bool {
	terms := expandQuery(query)

	haystack := strings.ToLower(strings.Join([]string{
		a.Title, a.Summary, a.Category,
		strings.Join(a.Integrations, " "),
		strings.Join(a.Tags, " "),
		strings.Join(a.Capabilities, " "),
	}, " "))

	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

func expandQuery(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	terms := []string{q}
	for _, alias := range integrationAliases[q] {
		terms = append(terms, alias)
	}
	return terms
}

func hasIntegration(a Artifact, name string) bool {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, have := range a.Integrations {
		h := strings.ToLower(have)
		if h == want || strings.Contains(h, want) || strings.Contains(want, h) {
			return true
		}
	}
	return false
}
