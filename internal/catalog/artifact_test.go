package catalog

import (
	"testing"
	"time"
)

var fetchedAt = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func TestNormalizeCommunityShape(t *testing.T) {
	raw := map[string]any{
		"filename":    "invoice_processing_webhook.json",
		"name":        "Invoice Processing",
		"description": "Parse incoming invoices and push them to DATEV",
		"nodes":       []any{"DATEV", "Gmail"},
	}

	a, err := Normalize("community", raw, fetchedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != "invoice_processing_webhook.json" {
		t.Errorf("expected filename as id fallback, got %q", a.ID)
	}
	if a.Title != "Invoice Processing" {
		t.Errorf("unexpected title %q", a.Title)
	}
	if a.Trigger != TriggerWebhook {
		t.Errorf("expected webhook trigger inferred from filename, got %q", a.Trigger)
	}
	if a.Category != "DATEV" {
		t.Errorf("expected category from first integration, got %q", a.Category)
	}
	if a.Complexity != TierLow {
		t.Errorf("expected Low tier for 2 integrations, got %q", a.Complexity)
	}
	if a.Kind != KindWorkflow {
		t.Errorf("expected workflow kind, got %q", a.Kind)
	}
	if !a.Active {
		t.Error("expected active default true")
	}
	if a.ContentHash == "" {
		t.Error("expected content hash")
	}
}

func TestNormalizeOfficialShape(t *testing.T) {
	raw := map[string]any{
		"id":          1234,
		"title":       "Daily sales report",
		"summary":     "Aggregates CRM data into a scheduled report",
		"triggerType": "scheduled",
		"complexity":  "medium",
		"category":    "Sales",
		"integrations": []any{
			map[string]any{"name": "HubSpot"},
			map[string]any{"name": "Google Sheets"},
			map[string]any{"name": "Slack"},
		},
		"author": map[string]any{"name": "Acme GmbH"},
	}

	a, err := Normalize("official", raw, fetchedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != "1234" {
		t.Errorf("expected weakly-typed int id, got %q", a.ID)
	}
	if a.Trigger != TriggerScheduled {
		t.Errorf("expected explicit scheduled trigger, got %q", a.Trigger)
	}
	if a.Complexity != TierMedium {
		t.Errorf("expected explicit medium tier, got %q", a.Complexity)
	}
	if a.Category != "Sales" {
		t.Errorf("explicit category must win, got %q", a.Category)
	}
	if len(a.Integrations) != 3 || a.Integrations[0] != "HubSpot" {
		t.Errorf("unexpected integrations %v", a.Integrations)
	}
	if a.Author != "Acme GmbH" {
		t.Errorf("unexpected author %q", a.Author)
	}
}

func TestNormalizeAgentShape(t *testing.T) {
	raw := map[string]any{
		"name":         "Bookkeeping Agent",
		"description":  "Keeps the ledger tidy",
		"capabilities": []any{"document-processing", "accounting-sync"},
	}

	a, err := Normalize("curated", raw, fetchedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Kind != KindAgent {
		t.Errorf("capabilities imply agent kind, got %q", a.Kind)
	}
	if len(a.Capabilities) != 2 {
		t.Errorf("unexpected capabilities %v", a.Capabilities)
	}
	if a.Trigger != "" {
		t.Errorf("agents carry no trigger, got %q", a.Trigger)
	}
}

func TestNormalizeRejectsIdentityless(t *testing.T) {
	if _, err := Normalize("community", map[string]any{"description": "no name at all"}, fetchedAt); err == nil {
		t.Fatal("expected error for record without identity")
	}
}

func TestNormalizeDeterministicHash(t *testing.T) {
	raw := map[string]any{"name": "X", "description": "Y"}
	a, err := Normalize("community", raw, fetchedAt)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Normalize("community", raw, fetchedAt)
	if err != nil {
		t.Fatal(err)
	}
	if a.ContentHash != b.ContentHash {
		t.Error("content hash must be deterministic")
	}
}

func TestInferTrigger(t *testing.T) {
	cases := []struct {
		text  string
		count int
		want  Trigger
	}{
		{"daily_backup_cron.json", 1, TriggerScheduled},
		{"new_lead_webhook.json", 1, TriggerWebhook},
		{"big pipeline", 7, TriggerComplex},
		{"simple export", 1, TriggerManual},
	}
	for _, tc := range cases {
		if got := inferTrigger(tc.text, tc.count); got != tc.want {
			t.Errorf("inferTrigger(%q, %d) = %q, want %q", tc.text, tc.count, got, tc.want)
		}
	}
}
