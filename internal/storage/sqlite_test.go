package storage

import (
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertSnapshotReplaces(t *testing.T) {
	s := openTestStore(t)

	first := SnapshotRow{
		Version:       "v1",
		Source:        "community",
		ArtifactsJSON: `[{"id":"a"}]`,
		StatsJSON:     `{"total":1}`,
		LastFetchTime: time.Now().UTC(),
	}
	if err := s.UpsertSnapshot(first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := first
	second.ArtifactsJSON = `[{"id":"a"},{"id":"b"}]`
	second.StatsJSON = `{"total":2}`
	if err := s.UpsertSnapshot(second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetSnapshot("v1", "community")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ArtifactsJSON != second.ArtifactsJSON {
		t.Errorf("expected replacement, got %s", got.ArtifactsJSON)
	}
}

func TestGetSnapshotNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetSnapshot("v1", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListSnapshotsByVersionPrefix(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC()
	for _, src := range []string{"official", "community", "curated"} {
		row := SnapshotRow{Version: "v1", Source: src, ArtifactsJSON: "[]", StatsJSON: "{}", LastFetchTime: now}
		if err := s.UpsertSnapshot(row); err != nil {
			t.Fatalf("upsert %s: %v", src, err)
		}
	}
	other := SnapshotRow{Version: "v2", Source: "community", ArtifactsJSON: "[]", StatsJSON: "{}", LastFetchTime: now}
	if err := s.UpsertSnapshot(other); err != nil {
		t.Fatal(err)
	}

	rows, err := s.ListSnapshots("v1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows for v1, got %d", len(rows))
	}
	// Sorted by source.
	if rows[0].Source != "community" || rows[1].Source != "curated" || rows[2].Source != "official" {
		t.Errorf("unexpected source order: %s, %s, %s", rows[0].Source, rows[1].Source, rows[2].Source)
	}
}

func TestAnalysisRoundTrip(t *testing.T) {
	s := openTestStore(t)

	rec := AnalysisRecord{
		ID:          "an-1",
		CreatedAt:   time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC),
		JobTitle:    "Marketing Manager",
		TaskCount:   8,
		AvgScore:    61.5,
		PayloadJSON: `{"tasks":[]}`,
	}
	if err := s.SaveAnalysis(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetAnalysis("an-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.JobTitle != rec.JobTitle || got.TaskCount != rec.TaskCount || got.AvgScore != rec.AvgScore {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("created_at mismatch: %v", got.CreatedAt)
	}

	if _, err := s.GetAnalysis("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAnalysesPagination(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := AnalysisRecord{
			ID:          string(rune('a' + i)),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			PayloadJSON: "{}",
		}
		if err := s.SaveAnalysis(rec); err != nil {
			t.Fatal(err)
		}
	}

	page, err := s.ListAnalyses(2, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 records, got %d", len(page))
	}
	// Newest first, offset skips the newest.
	if page[0].ID != "d" || page[1].ID != "c" {
		t.Errorf("unexpected page order: %s, %s", page[0].ID, page[1].ID)
	}
}
