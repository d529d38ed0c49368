// Package recommend orchestrates the full analysis pipeline: extract tasks
// from a posting, score them, match catalog artifacts, and draft blueprints
// where the catalog has nothing to offer.
package recommend

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okofler/jobpilot/internal/catalog"
	"github.com/okofler/jobpilot/internal/extract"
	"github.com/okofler/jobpilot/internal/llm"
	"github.com/okofler/jobpilot/internal/matching"
	"github.com/okofler/jobpilot/internal/scoring"
	"github.com/okofler/jobpilot/internal/storage"
)

// matchThreshold is the minimum automation score a task needs before the
// catalog is consulted at all. Below it a task is considered human work.
const matchThreshold = 20

// prefilterLimit bounds how many candidates the detailed matcher sees per
// task. Larger catalogs are narrowed by TF-IDF relevance first.
const prefilterLimit = 50

// ArtifactSource serves ranked artifacts. Implemented by catalog.Cache.
type ArtifactSource interface {
	Artifacts(ctx context.Context, source string) []catalog.Artifact
}

// AnalysisStore persists the audit row per analyze call. Implemented by
// storage.Store.
type AnalysisStore interface {
	SaveAnalysis(rec storage.AnalysisRecord) error
}

// Request is one analyze call.
type Request struct {
	JobTitle            string
	Text                string
	MaxResults          int
	MinScore            int
	PreferredComplexity catalog.Tier
}

// TaskResult bundles everything the pipeline derived for one task.
type TaskResult struct {
	Task      string             `json:"task"`
	Origin    extract.Source     `json:"origin"`
	Scoring   scoring.ScoredTask `json:"scoring"`
	Systems   []string           `json:"systems,omitempty"`
	Matches   []matching.Result  `json:"matches"`
	Blueprint *llm.Blueprint     `json:"blueprint,omitempty"`
}

// Summary aggregates the per-task results.
type Summary struct {
	TaskCount        int     `json:"taskCount"`
	AvgScore         float64 `json:"avgScore"`
	AutomatableCount int     `json:"automatableCount"`
}

// Analysis is the full advisor output. It is also what gets persisted as the
// analysis payload.
type Analysis struct {
	ID        string       `json:"id"`
	JobTitle  string       `json:"jobTitle,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	Tasks     []TaskResult `json:"tasks"`
	Summary   Summary      `json:"summary"`
}

// Advisor wires the pipeline stages together.
type Advisor struct {
	catalog ArtifactSource
	planner *llm.Planner
	store   AnalysisStore
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// New builds an Advisor. store may be nil to skip audit persistence.
func New(cat ArtifactSource, planner *llm.Planner, store AnalysisStore, logger *zap.Logger) *Advisor {
	if planner == nil {
		planner = llm.NewPlanner(nil, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{
		catalog: cat,
		planner: planner,
		store:   store,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.NewString() },
	}
}

// Analyze runs the pipeline over a job posting. It never fails on empty or
// unextractable input; the result just carries zero tasks.
func (a *Advisor) Analyze(ctx context.Context, req Request) Analysis {
	analysis := Analysis{
		ID:        a.newID(),
		JobTitle:  strings.TrimSpace(req.JobTitle),
		CreatedAt: a.now(),
		Tasks:     []TaskResult{},
	}

	raw := extract.Tasks(req.Text)
	if len(raw) == 0 {
		a.logger.Info("no tasks extracted", zap.String("analysis", analysis.ID))
		a.persist(analysis)
		return analysis
	}

	candidates := a.catalog.Artifacts(ctx, catalog.SourceAll)

	var scoreSum int
	for _, rt := range raw {
		scored := scoring.Score(rt.Text, req.JobTitle)
		systems := detectSystems(rt.Text)

		tr := TaskResult{
			Task:    rt.Text,
			Origin:  rt.Source,
			Scoring: scored,
			Systems: systems,
			Matches: []matching.Result{},
		}

		if scored.Score >= matchThreshold {
			task := matching.Task{
				Title:               rt.Text,
				Systems:             systems,
				Complexity:          tierFor(scored.Complexity),
				AutomationPotential: float64(scored.Score) / 100,
			}
			opts := matching.Options{
				MaxResults:          req.MaxResults,
				MinScore:            req.MinScore,
				PreferredComplexity: req.PreferredComplexity,
			}
			tr.Matches = matching.Match(task, prefilter(rt.Text, candidates), opts)

			if len(tr.Matches) == 0 && scored.Label == scoring.LabelAutomatable {
				tr.Blueprint, tr.Matches = a.draftBlueprint(ctx, req.JobTitle, task, scored)
			}
		}

		scoreSum += scored.Score
		if scored.Label == scoring.LabelAutomatable {
			analysis.Summary.AutomatableCount++
		}
		analysis.Tasks = append(analysis.Tasks, tr)
	}

	analysis.Summary.TaskCount = len(analysis.Tasks)
	analysis.Summary.AvgScore = math.Round(float64(scoreSum)/float64(len(analysis.Tasks))*10) / 10

	a.persist(analysis)
	return analysis
}

// draftBlueprint covers the no-match path for an automatable task: ask the
// planner for a blueprint, wrap it as a synthetic artifact, and score it with
// the same matcher so the result shape stays uniform.
func (a *Advisor) draftBlueprint(ctx context.Context, jobTitle string, task matching.Task, scored scoring.ScoredTask) (*llm.Blueprint, []matching.Result) {
	solutionType := llm.SolutionWorkflow
	if scored.Complexity == scoring.ComplexityHigh {
		solutionType = llm.SolutionAgent
	}

	bp, fromBackend := a.planner.Plan(ctx, llm.Request{
		JobTitle:     jobTitle,
		TaskTitle:    task.Title,
		Systems:      task.Systems,
		SolutionType: solutionType,
	})

	source := matching.SourceFallback
	if fromBackend {
		source = matching.SourceGenerated
	}

	kind := catalog.KindWorkflow
	if bp.SolutionType == llm.SolutionAgent {
		kind = catalog.KindAgent
	}

	artifact := catalog.Artifact{
		ID:           a.newID(),
		Source:       source,
		Kind:         kind,
		Title:        bp.Title,
		Summary:      bp.Summary,
		Category:     scored.Category,
		Integrations: bp.Integrations,
		Complexity:   tierFor(scored.Complexity),
		Trigger:      catalog.TriggerManual,
		Capabilities: scored.RecommendedCapabilities,
		Active:       true,
	}

	results := matching.Match(task, []catalog.Artifact{artifact}, matching.Options{MinScore: 1, MaxResults: 1})
	if len(results) == 0 {
		results = []matching.Result{{
			Artifact:      artifact,
			Status:        matching.Status(source),
			IsAIGenerated: true,
		}}
	}
	return &bp, results
}

func (a *Advisor) persist(analysis Analysis) {
	if a.store == nil {
		return
	}
	payload, err := json.Marshal(analysis)
	if err != nil {
		a.logger.Warn("marshal analysis payload", zap.Error(err))
		return
	}
	rec := storage.AnalysisRecord{
		ID:          analysis.ID,
		CreatedAt:   analysis.CreatedAt,
		JobTitle:    analysis.JobTitle,
		TaskCount:   analysis.Summary.TaskCount,
		AvgScore:    analysis.Summary.AvgScore,
		PayloadJSON: string(payload),
	}
	// Audit persistence never fails the request.
	if err := a.store.SaveAnalysis(rec); err != nil {
		a.logger.Warn("save analysis", zap.String("analysis", analysis.ID), zap.Error(err))
	}
}

// prefilter narrows large candidate sets to the most relevant entries by
// TF-IDF similarity. Small catalogs pass through untouched so the detailed
// matcher keeps provider order for tie-breaking.
func prefilter(taskText string, candidates []catalog.Artifact) []catalog.Artifact {
	if len(candidates) <= prefilterLimit {
		return candidates
	}
	ranked := matching.RankTFIDF(taskText, candidates, prefilterLimit)
	out := make([]catalog.Artifact, len(ranked))
	for i, r := range ranked {
		out[i] = r.Artifact
	}
	return out
}

func tierFor(c scoring.Complexity) catalog.Tier {
	switch c {
	case scoring.ComplexityLow:
		return catalog.TierLow
	case scoring.ComplexityHigh:
		return catalog.TierHigh
	default:
		return catalog.TierMedium
	}
}

// knownSystems maps lowercase needles to the display name reported in
// results and used for integration matching.
var knownSystems = map[string]string{
	"datev":      "DATEV",
	"sap":        "SAP",
	"excel":      "Excel",
	"outlook":    "Outlook",
	"gmail":      "Gmail",
	"hubspot":    "HubSpot",
	"salesforce": "Salesforce",
	"slack":      "Slack",
	"jira":       "Jira",
	"teams":      "Microsoft Teams",
	"notion":     "Notion",
	"mailchimp":  "Mailchimp",
	"lexware":    "Lexware",
	"power bi":   "Power BI",
	"sheets":     "Google Sheets",
	"shopify":    "Shopify",
	"wordpress":  "WordPress",
}

func detectSystems(text string) []string {
	lower := strings.ToLower(text)
	var systems []string
	seen := make(map[string]bool)
	for needle, name := range knownSystems {
		if strings.Contains(lower, needle) && !seen[name] {
			seen[name] = true
			systems = append(systems, name)
		}
	}
	// Map iteration order is random; keep output deterministic.
	sort.Strings(systems)
	return systems
}
