package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCommunityFetch(t *testing.T) {
	srv := serve(t, "application/json", `[
		{"filename":"invoice_sync.json","name":"Invoice sync","description":"d","nodes":["DATEV"]},
		{"filename":"lead_webhook.json","name":"Lead webhook","nodes":["HubSpot","Slack"]}
	]`)

	p := NewCommunity(srv.URL, srv.Client())
	records, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0]["filename"] != "invoice_sync.json" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
}

func TestOfficialFetch(t *testing.T) {
	srv := serve(t, "application/json", `{"workflows":[{"id":7,"title":"Daily report","summary":"s"}]}`)

	p := NewOfficial(srv.URL, srv.Client())
	records, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0]["title"] != "Daily report" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestCuratedFetch(t *testing.T) {
	srv := serve(t, "application/x-yaml", `agents:
  - name: Bookkeeping Agent
    description: Keeps the ledger tidy
    capabilities:
      - document-processing
  - name: Research Agent
    description: Summarizes sources
`)

	p := NewCurated(srv.URL, srv.Client())
	records, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(records))
	}
	for _, rec := range records {
		if rec["type"] != "agent" {
			t.Errorf("expected agent type marker, got %+v", rec)
		}
	}
}

func TestAwesomeFetch(t *testing.T) {
	srv := serve(t, "text/html", `<html><body>
		<h2>Finance</h2>
		<ul>
			<li><a href="https://example.com/datev-flow">DATEV flow</a> - invoice automation</li>
		</ul>
		<h2>Marketing</h2>
		<ul>
			<li><a href="https://example.com/campaign-bot">Campaign bot</a> - scheduling</li>
			<li><a href="#toc">internal anchor</a></li>
		</ul>
	</body></html>`)

	p := NewAwesome(srv.URL, srv.Client())
	records, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (internal anchors skipped), got %d: %+v", len(records), records)
	}
	if records[0]["category"] != "Finance" || records[1]["category"] != "Marketing" {
		t.Errorf("heading categories not applied: %+v", records)
	}
	if records[0]["name"] != "DATEV flow" {
		t.Errorf("unexpected name: %+v", records[0])
	}
}

func TestFetchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	p := NewCommunity(srv.URL, srv.Client())
	if _, err := p.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
