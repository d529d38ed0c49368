package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/okofler/jobpilot/internal/storage"
)

// SourceAll addresses the deduplicated union across all provider snapshots.
const SourceAll = "all"

// refreshConcurrency bounds the provider fan-out when refreshing everything.
const refreshConcurrency = 5

// Provider fetches one external source's raw artifact listing. Implementations
// live in catalog/providers; tests supply fakes.
type Provider interface {
	Key() string
	Fetch(ctx context.Context) ([]map[string]any, error)
}

// SnapshotStore is the persistence boundary, implemented by storage.Store.
type SnapshotStore interface {
	UpsertSnapshot(row storage.SnapshotRow) error
	GetSnapshot(version, source string) (storage.SnapshotRow, error)
	ListSnapshots(versionPrefix string) ([]storage.SnapshotRow, error)
}

// Snapshot is one versioned, source-scoped batch of artifacts.
type Snapshot struct {
	Version   string     `json:"version"`
	Source    string     `json:"source"`
	Artifacts []Artifact `json:"artifacts"`
	LastFetch time.Time  `json:"lastFetchTime"`
}

// Stats summarizes a snapshot for the stats_json column.
type Stats struct {
	Total     int             `json:"total"`
	Workflows int             `json:"workflows"`
	Agents    int             `json:"agents"`
	ByTrigger map[Trigger]int `json:"byTrigger,omitempty"`
}

// RefreshResult reports the outcome of refreshing one source.
type RefreshResult struct {
	Source  string `json:"source"`
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// Cache is the multi-source artifact catalog. Reads are served from memory,
// falling back to the snapshot store, falling back to a provider fetch.
// Snapshot writes are last-write-wins; there is no cross-process locking —
// snapshots are disposable, reconstructible caches.
type Cache struct {
	version   string
	store     SnapshotStore
	providers map[string]Provider
	order     []string // provider registration order, for deterministic unions
	logger    *zap.Logger

	mu  sync.RWMutex
	mem map[string]Snapshot
}

// New builds a Cache over the given store and providers. version is the
// snapshot schema version part of the (version, source) persistence key.
func New(version string, store SnapshotStore, providers []Provider, logger *zap.Logger) *Cache {
	c := &Cache{
		version:   version,
		store:     store,
		providers: make(map[string]Provider, len(providers)),
		logger:    logger,
		mem:       make(map[string]Snapshot),
	}
	for _, p := range providers {
		c.providers[p.Key()] = p
		c.order = append(c.order, p.Key())
	}
	return c
}

// Sources lists the known source keys, the union view first.
func (c *Cache) Sources() []string {
	out := make([]string, 0, len(c.order)+1)
	out = append(out, SourceAll)
	out = append(out, c.order...)
	return out
}

// Artifacts returns the artifact set for a source. Empty source or "all"
// serves the union view. A missing snapshot triggers a fetch; a fetch failure
// degrades to an empty set rather than an error. Provider trouble never
// surfaces to readers.
func (c *Cache) Artifacts(ctx context.Context, source string) []Artifact {
	if source == "" || source == SourceAll {
		return c.union(ctx)
	}

	if snap, ok := c.memGet(source); ok {
		return snap.Artifacts
	}

	if snap, err := c.load(source); err == nil {
		c.memSet(snap)
		return snap.Artifacts
	}

	res := c.Refresh(ctx, source)
	if !res.Success {
		c.logger.Warn("no snapshot available for source, serving empty set",
			zap.String("source", source), zap.String("error", res.Error))
		return nil
	}
	snap, _ := c.memGet(source)
	return snap.Artifacts
}

// Refresh fetches one source and replaces its snapshot. On fetch failure the
// previously cached snapshot (if any) stays in place.
func (c *Cache) Refresh(ctx context.Context, source string) RefreshResult {
	p, ok := c.providers[source]
	if !ok {
		return RefreshResult{Source: source, Error: fmt.Sprintf("unknown source %q", source)}
	}

	raws, err := p.Fetch(ctx)
	if err != nil {
		c.logger.Warn("provider fetch failed, keeping last good snapshot",
			zap.String("source", source), zap.Error(err))
		return RefreshResult{Source: source, Error: err.Error()}
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(raws))
	artifacts := make([]Artifact, 0, len(raws))
	for _, raw := range raws {
		a, err := Normalize(source, raw, now)
		if err != nil {
			c.logger.Debug("skipping malformed record", zap.String("source", source), zap.Error(err))
			continue
		}
		if seen[a.Key()] {
			continue
		}
		seen[a.Key()] = true
		artifacts = append(artifacts, a)
	}

	snap := Snapshot{Version: c.version, Source: source, Artifacts: artifacts, LastFetch: now}
	if err := c.persist(snap); err != nil {
		// Memory still serves the fresh data; persistence is best effort.
		c.logger.Warn("persisting snapshot failed", zap.String("source", source), zap.Error(err))
	}
	c.memSet(snap)

	c.rebuildUnionIfGrown()

	return RefreshResult{Source: source, Success: true, Count: len(artifacts)}
}

// RefreshAll refreshes every registered provider with a bounded fan-out.
// Individual provider failures are reported per result, never fatal.
func (c *Cache) RefreshAll(ctx context.Context) []RefreshResult {
	results := make([]RefreshResult, len(c.order))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for i, source := range c.order {
		i, source := i, source
		g.Go(func() error {
			results[i] = c.Refresh(gCtx, source)
			return nil
		})
	}
	g.Wait() // no error path: per-source failures live in results

	return results
}

// union computes the deduplicated "all" view: iterate per-source sets in
// registration order, keep the first-seen artifact per union key. Sources
// without a snapshot are fetched through the per-source read path. The stored
// "all" snapshot is refreshed only when the recomputed union outgrew it —
// lazy consistency for a cache of caches.
func (c *Cache) union(ctx context.Context) []Artifact {
	seen := make(map[string]bool)
	var merged []Artifact
	for _, source := range c.order {
		for _, a := range c.Artifacts(ctx, source) {
			if seen[a.unionKey()] {
				continue
			}
			seen[a.unionKey()] = true
			merged = append(merged, a)
		}
	}

	if len(merged) == 0 {
		// Nothing cached at all; serve a stored union if one exists.
		if snap, err := c.load(SourceAll); err == nil {
			return snap.Artifacts
		}
		return nil
	}

	stored, err := c.load(SourceAll)
	if err != nil || len(merged) > len(stored.Artifacts) {
		snap := Snapshot{Version: c.version, Source: SourceAll, Artifacts: merged, LastFetch: time.Now().UTC()}
		if perr := c.persist(snap); perr != nil {
			c.logger.Warn("persisting union snapshot failed", zap.Error(perr))
		}
	}

	return merged
}

func (c *Cache) computeUnion() []Artifact {
	seen := make(map[string]bool)
	var merged []Artifact
	for _, source := range c.order {
		snap, ok := c.memGet(source)
		if !ok {
			loaded, err := c.load(source)
			if err != nil {
				continue
			}
			c.memSet(loaded)
			snap = loaded
		}
		for _, a := range snap.Artifacts {
			if seen[a.unionKey()] {
				continue
			}
			seen[a.unionKey()] = true
			merged = append(merged, a)
		}
	}
	return merged
}

func (c *Cache) rebuildUnionIfGrown() {
	merged := c.computeUnion()
	stored, err := c.load(SourceAll)
	if err == nil && len(merged) <= len(stored.Artifacts) {
		return
	}
	snap := Snapshot{Version: c.version, Source: SourceAll, Artifacts: merged, LastFetch: time.Now().UTC()}
	if perr := c.persist(snap); perr != nil {
		c.logger.Warn("persisting union snapshot failed", zap.Error(perr))
	}
}

func (c *Cache) persist(snap Snapshot) error {
	artifactsJSON, err := json.Marshal(snap.Artifacts)
	if err != nil {
		return fmt.Errorf("marshaling artifacts: %w", err)
	}
	statsJSON, err := json.Marshal(statsFor(snap.Artifacts))
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	return c.store.UpsertSnapshot(storage.SnapshotRow{
		Version:       snap.Version,
		Source:        snap.Source,
		ArtifactsJSON: string(artifactsJSON),
		StatsJSON:     string(statsJSON),
		LastFetchTime: snap.LastFetch,
	})
}

func (c *Cache) load(source string) (Snapshot, error) {
	row, err := c.store.GetSnapshot(c.version, source)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("reading snapshot failed", zap.String("source", source), zap.Error(err))
		}
		return Snapshot{}, err
	}
	var artifacts []Artifact
	if err := json.Unmarshal([]byte(row.ArtifactsJSON), &artifacts); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot %s/%s: %w", row.Version, row.Source, err)
	}
	return Snapshot{
		Version:   row.Version,
		Source:    row.Source,
		Artifacts: artifacts,
		LastFetch: row.LastFetchTime,
	}, nil
}

func (c *Cache) memGet(source string) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.mem[source]
	return snap, ok
}

func (c *Cache) memSet(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem[snap.Source] = snap
}

func statsFor(artifacts []Artifact) Stats {
	s := Stats{Total: len(artifacts), ByTrigger: make(map[Trigger]int)}
	for _, a := range artifacts {
		switch a.Kind {
		case KindAgent:
			s.Agents++
		default:
			s.Workflows++
		}
		if a.Trigger != "" {
			s.ByTrigger[a.Trigger]++
		}
	}
	return s
}
