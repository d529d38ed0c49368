// Package matching scores catalog artifacts against a task description with
// a multi-factor heuristic and emits ranked, explainable results.
package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okofler/jobpilot/internal/catalog"
)

// Status tags a match by the provenance of its artifact.
type Status string

const (
	StatusVerified  Status = "verified"  // trusted catalog source
	StatusGenerated Status = "generated" // produced by the AI blueprint path
	StatusFallback  Status = "fallback"  // synthesized placeholder template
)

// SourceGenerated and SourceFallback are the artifact source keys carrying
// non-catalog provenance. The matcher reads them, the orchestrator writes them.
const (
	SourceGenerated = "generated"
	SourceFallback  = "fallback"
)

// Task is the matching input: a (possibly decomposed) task with the systems
// it touches and how automatable the scorer judged it.
type Task struct {
	Title               string
	Description         string
	Systems             []string
	Complexity          catalog.Tier
	AutomationPotential float64 // 0..1
}

// Options tune one Match call. Zero values fall back to the defaults.
type Options struct {
	MaxResults          int          // default 5
	MinScore            int          // default 30
	PreferredComplexity catalog.Tier // optional +10 post-pass
}

const (
	defaultMaxResults = 5
	defaultMinScore   = 30
)

// Result is one ranked match. Ephemeral, recomputed per request.
type Result struct {
	Artifact                  catalog.Artifact `json:"artifact"`
	Score                     int              `json:"matchScore"`
	Reasons                   []string         `json:"matchReasons"`
	RelevantIntegrations      []string         `json:"relevantIntegrations,omitempty"`
	EstimatedTimeSavingsHours float64          `json:"estimatedTimeSavingsHours"`
	Status                    Status           `json:"status"`
	IsAIGenerated             bool             `json:"isAIGenerated"`
}

// Scoring weights. Title and description similarity only count above a
// deliberately low overlap threshold — recall is favored over precision.
const (
	titleSimilarityScale = 30
	descSimilarityScale  = 25
	similarityThreshold  = 0.05
	domainBonusCap       = 30
	integrationPoints    = 15
	integrationCap       = 25
	complexityExact      = 10
	complexityAdjacent   = 5
	potentialScale       = 10
	preferredBonus       = 10
)

// domainKeywords is the fixed weighted keyword table for the domain bonus.
// A keyword only counts when both the task title and the candidate text
// contain it.
var domainKeywords = map[string]float64{
	"rechnung": 8, "invoice": 8, "datev": 10, "accounting": 8, "buchhaltung": 8,
	"kontieren": 6, "verbuchen": 6, "payroll": 7, "lohn": 6,
	"report": 5, "data": 4, "daten": 4, "dashboard": 5, "analytics": 5,
	"email": 6, "mail": 5, "newsletter": 5, "notification": 4,
	"crm": 6, "lead": 5, "kunde": 4,
	"marketing": 5, "kampagne": 5, "campaign": 5, "social": 4,
	"development": 5, "deploy": 5, "api": 5, "backup": 4,
	"monitor": 5, "sync": 5, "automation": 5, "scrape": 5,
	"document": 5, "dokument": 5, "archiv": 4,
}

var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "von": true,
	"und": true, "der": true, "die": true, "das": true, "des": true,
	"mit": true, "für": true, "aus": true, "bei": true, "auf": true,
	"all": true, "new": true, "your": true, "our": true, "into": true,
}

// Match scores every candidate against the task and returns at most
// MaxResults entries with score >= MinScore, sorted descending.
//
// Ties keep input order (stable sort); there is no secondary key, so equal
// scores rank in provider order.
func Match(task Task, candidates []catalog.Artifact, opts Options) []Result {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.MinScore <= 0 {
		opts.MinScore = defaultMinScore
	}

	var results []Result
	for _, cand := range candidates {
		r := scoreCandidate(task, cand)
		if opts.PreferredComplexity != "" && cand.Complexity == opts.PreferredComplexity {
			r.Score = clampScore(r.Score + preferredBonus)
			r.Reasons = append(r.Reasons, "preferred complexity tier")
		}
		if r.Score < opts.MinScore {
			continue
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results
}

func scoreCandidate(task Task, cand catalog.Artifact) Result {
	var points float64
	var reasons []string

	taskTitle := strings.ToLower(task.Title)
	taskTokens := tokenize(task.Title)
	candText := strings.ToLower(cand.Title + " " + cand.Summary + " " + cand.Category)

	// Title similarity.
	if j := jaccard(taskTokens, tokenize(cand.Title)); j > similarityThreshold {
		points += j * titleSimilarityScale
		reasons = append(reasons, fmt.Sprintf("title overlap %d%%", int(math.Round(j*100))))
	}

	// Description similarity against the candidate summary.
	taskText := task.Title
	if task.Description != "" {
		taskText += " " + task.Description
	}
	if j := jaccard(tokenize(taskText), tokenize(cand.Summary)); j > similarityThreshold {
		points += j * descSimilarityScale
		reasons = append(reasons, fmt.Sprintf("description overlap %d%%", int(math.Round(j*100))))
	}

	// Domain keyword bonus.
	var bonus float64
	var hitWords []string
	for kw, weight := range domainKeywords {
		if strings.Contains(taskTitle, kw) && strings.Contains(candText, kw) {
			bonus += weight
			hitWords = append(hitWords, kw)
		}
	}
	if bonus > domainBonusCap {
		bonus = domainBonusCap
	}
	if bonus > 0 {
		sort.Strings(hitWords)
		points += bonus
		reasons = append(reasons, "domain keywords: "+strings.Join(hitWords, ", "))
	}

	// Integration/system overlap.
	var overlap float64
	var matched []string
	seen := make(map[string]bool)
	for _, sys := range task.Systems {
		for _, integ := range cand.Integrations {
			if !integrationsMatch(sys, integ) {
				continue
			}
			overlap += integrationPoints
			if !seen[strings.ToLower(integ)] {
				seen[strings.ToLower(integ)] = true
				matched = append(matched, integ)
			}
		}
	}
	if overlap > integrationCap {
		overlap = integrationCap
	}
	if overlap > 0 {
		points += overlap
		reasons = append(reasons, "shares integrations: "+strings.Join(matched, ", "))
	}

	// Complexity tier match.
	switch complexityDistance(task.Complexity, cand.Complexity) {
	case 0:
		points += complexityExact
		reasons = append(reasons, "complexity tier matches")
	case 1:
		points += complexityAdjacent
		reasons = append(reasons, "adjacent complexity tier")
	}

	// Automation-potential alignment: the only unconditional term.
	points += task.AutomationPotential * potentialScale

	status, generated := provenance(cand)

	return Result{
		Artifact:                  cand,
		Score:                     clampScore(int(math.Round(points))),
		Reasons:                   reasons,
		RelevantIntegrations:      matched,
		EstimatedTimeSavingsHours: estimateSavings(cand, len(matched)),
		Status:                    status,
		IsAIGenerated:             generated,
	}
}

// provenance maps the artifact source to a match status. The matcher never
// alters provenance, it only reads what the orchestrator or catalog put there.
func provenance(a catalog.Artifact) (Status, bool) {
	switch a.Source {
	case SourceGenerated:
		return StatusGenerated, true
	case SourceFallback:
		return StatusFallback, true
	default:
		return StatusVerified, false
	}
}

// estimateSavings is a deterministic weekly-hours heuristic based on how the
// artifact runs and how well it plugs into the task's systems.
func estimateSavings(a catalog.Artifact, matchedIntegrations int) float64 {
	base := 1.5
	switch a.Trigger {
	case catalog.TriggerScheduled:
		base = 4
	case catalog.TriggerWebhook:
		base = 3
	case catalog.TriggerComplex:
		base = 6
	}
	if a.Kind == catalog.KindAgent {
		base = 5
	}
	return base + float64(matchedIntegrations)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// tokenize lowercases and splits on non-alphanumeric runes, dropping stop
// words and tokens shorter than 3 runes.
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	var word strings.Builder
	flush := func() {
		w := word.String()
		word.Reset()
		if len([]rune(w)) >= 3 && !stopWords[w] {
			tokens[w] = true
		}
	}
	for _, r := range strings.ToLower(text) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || r > 127 {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// integrationsMatch reports whether a task system and a candidate integration
// refer to the same thing: equal or one contains the other, case-insensitive.
func integrationsMatch(sys, integ string) bool {
	s := strings.ToLower(strings.TrimSpace(sys))
	i := strings.ToLower(strings.TrimSpace(integ))
	if s == "" || i == "" {
		return false
	}
	return s == i || strings.Contains(s, i) || strings.Contains(i, s)
}

func complexityDistance(a, b catalog.Tier) int {
	rank := map[catalog.Tier]int{catalog.TierLow: 0, catalog.TierMedium: 1, catalog.TierHigh: 2}
	ra, okA := rank[a]
	rb, okB := rank[b]
	if !okA || !okB {
		return 3
	}
	d := ra - rb
	if d < 0 {
		d = -d
	}
	return d
}
