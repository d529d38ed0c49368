package catalog

import (
	"context"
	"testing"
)

func searchFixture(t *testing.T) *Cache {
	t.Helper()
	p := &fakeProvider{key: "community", records: []map[string]any{
		{"id": "wf-1", "name": "DATEV Rechnungsverarbeitung", "description": "Eingangsrechnungen automatisch verbuchen", "integrations": []any{"DATEV", "Gmail"}, "triggerType": "webhook"},
		{"id": "wf-2", "name": "Lead capture", "description": "Push new leads into HubSpot", "integrations": []any{"HubSpot"}, "triggerType": "webhook", "category": "Sales"},
		{"id": "wf-3", "name": "Nightly report", "description": "Scheduled sales report", "integrations": []any{"Google Sheets", "Slack", "HubSpot", "Postgres"}, "triggerType": "scheduled"},
		{"id": "wf-4", "name": "Archived flow", "description": "Old one", "integrations": []any{"FTP"}, "active": false},
	}}
	c, _ := newTestCache(t, p)
	if res := c.Refresh(context.Background(), "community"); !res.Success {
		t.Fatalf("fixture refresh failed: %+v", res)
	}
	return c
}

func TestSearchFreeText(t *testing.T) {
	c := searchFixture(t)

	res := c.Search(context.Background(), SearchParams{Query: "rechnung"})
	if res.Total != 1 || res.Artifacts[0].ID != "wf-1" {
		t.Errorf("expected wf-1 for 'rechnung', got %+v", res)
	}
}

func TestSearchSynonymExpansion(t *testing.T) {
	c := searchFixture(t)

	// "crm" is not a literal substring anywhere; the alias table maps it to HubSpot.
	res := c.Search(context.Background(), SearchParams{Query: "crm"})
	if res.Total != 2 {
		t.Errorf("expected 2 hits via crm alias, got %d", res.Total)
	}
}

func TestSearchFilters(t *testing.T) {
	c := searchFixture(t)

	res := c.Search(context.Background(), SearchParams{Trigger: "scheduled"})
	if res.Total != 1 || res.Artifacts[0].ID != "wf-3" {
		t.Errorf("trigger filter failed: %+v", res)
	}

	res = c.Search(context.Background(), SearchParams{Category: "sales"})
	if res.Total != 1 || res.Artifacts[0].ID != "wf-2" {
		t.Errorf("category filter failed: %+v", res)
	}

	active := true
	res = c.Search(context.Background(), SearchParams{Active: &active})
	if res.Total != 3 {
		t.Errorf("active filter failed, got %d", res.Total)
	}

	res = c.Search(context.Background(), SearchParams{Integrations: []string{"hubspot"}})
	if res.Total != 2 {
		t.Errorf("integration filter failed, got %d", res.Total)
	}
}

func TestSearchPagination(t *testing.T) {
	c := searchFixture(t)

	page1 := c.Search(context.Background(), SearchParams{Limit: 2, Offset: 0})
	if len(page1.Artifacts) != 2 || !page1.HasMore || page1.Total != 4 {
		t.Errorf("unexpected first page: %+v", page1)
	}

	page2 := c.Search(context.Background(), SearchParams{Limit: 2, Offset: 2})
	if len(page2.Artifacts) != 2 || page2.HasMore {
		t.Errorf("unexpected second page: %+v", page2)
	}

	beyond := c.Search(context.Background(), SearchParams{Limit: 2, Offset: 10})
	if len(beyond.Artifacts) != 0 || beyond.HasMore {
		t.Errorf("unexpected page beyond end: %+v", beyond)
	}
}
