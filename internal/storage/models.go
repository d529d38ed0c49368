package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SnapshotRow is one persisted catalog snapshot, keyed by (version, source).
// Artifact payload and stats are stored as JSON text; the catalog package owns
// the (un)marshaling.
type SnapshotRow struct {
	Version       string
	Source        string
	ArtifactsJSON string
	StatsJSON     string
	LastFetchTime time.Time
}

// AnalysisRecord is the audit row written per analyze request.
type AnalysisRecord struct {
	ID          string
	CreatedAt   time.Time
	JobTitle    string
	TaskCount   int
	AvgScore    float64
	PayloadJSON string
}
