// Package scoring estimates how automatable a single task description is.
// Scoring is a pure keyword-signal heuristic: no I/O, no LLM calls.
package scoring

import (
	"math"
	"strings"
)

// Label classifies the automation potential of a task.
type Label string

const (
	LabelAutomatable          Label = "Automatable"
	LabelPartiallyAutomatable Label = "PartiallyAutomatable"
	LabelHuman                Label = "Human"
)

// Complexity tiers shared with the catalog artifact model.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Trend describes where automation tooling for a task is heading.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendStable     Trend = "stable"
	TrendDecreasing Trend = "decreasing"
)

// ScoredTask is the immutable scoring result for one task text.
type ScoredTask struct {
	Text                    string     `json:"text"`
	Score                   int        `json:"score"` // 0..85
	Label                   Label      `json:"label"`
	Category                string     `json:"category"`
	Industry                string     `json:"industry"`
	Complexity              Complexity `json:"complexity"`
	AutomationTrend         Trend      `json:"automationTrend"`
	Confidence              int        `json:"confidence"`
	Signals                 []string   `json:"signals"`
	RecommendedCapabilities []string   `json:"recommendedCapabilities"`
}

const (
	maxScore      = 85
	industryBonus = 5

	singleSignalDamping = 0.7
	multiSignalBoost    = 1.05

	thresholdAutomatable = 60
	thresholdPartial     = 20
)

// signalGroup is a named keyword cluster with a weight.
type signalGroup struct {
	name     string
	weight   float64
	keywords []string
}

var signalGroups = []signalGroup{
	{"software-development", 8, []string{"programmier", "software", "code", "api", "deployment", "frontend", "backend", "devops", "ci/cd", "entwickler", "git", "script"}},
	{"data-analysis", 9, []string{"daten", "data", "report", "auswertung", "analyse", "analysis", "dashboard", "kpi", "statistik", "excel", "metriken"}},
	{"healthcare", 4, []string{"patient", "medizin", "klinik", "therapie", "diagnose", "health", "clinical"}},
	{"finance", 9, []string{"rechnung", "invoice", "buchhaltung", "accounting", "kontieren", "verbuchen", "zahlung", "payment", "datev", "steuer", "payroll", "lohnabrechnung", "mahnwesen"}},
	{"marketing", 7, []string{"marketing", "kampagne", "campaign", "social media", "seo", "newsletter", "content"}},
	{"hr", 6, []string{"recruiting", "bewerber", "onboarding", "candidate", "stellenanzeige", "personalakte"}},
	{"production", 5, []string{"produktion", "fertigung", "montage", "manufacturing", "assembly", "maschinen"}},
	{"education", 4, []string{"unterricht", "schulung", "training", "teaching", "kurs", "lehrplan"}},
	{"legal", 5, []string{"vertrag", "contract", "compliance", "datenschutz", "legal", "rechtlich"}},
	{"documentation", 8, []string{"dokumentation", "documentation", "protokoll", "erfassung", "dateneingabe", "data entry", "ablage", "archiv"}},
	{"monitoring", 8, []string{"überwachung", "monitoring", "alert", "kontrolle", "prüfung", "check", "tracking"}},
	{"creative-strategy", 2, []string{"strategie", "strategy", "konzept", "kreativ", "creative", "vision", "innovation", "branding"}},
	{"human-interaction", 2, []string{"kunden", "customer", "beratung", "consulting", "gespräch", "meeting", "verhandlung", "negotiation", "präsentation", "telefon", "stakeholder", "workshop"}},
	{"management", 3, []string{"führung", "leadership", "leitung", "mitarbeiterführung", "team lead", "personalverantwortung", "budgetverantwortung"}},
	{"ai-assisted", 9, []string{"chatgpt", "künstliche intelligenz", "artificial intelligence", "llm", "automatisierung", "automation", "prompt", "machine learning"}},
}

// capabilityBySignal maps detected signals to capabilities an automation
// artifact should bring along.
var capabilityBySignal = map[string][]string{
	"software-development": {"code-generation", "pipeline-automation"},
	"data-analysis":        {"data-extraction", "report-generation"},
	"finance":              {"document-processing", "accounting-sync"},
	"marketing":            {"content-generation", "campaign-scheduling"},
	"hr":                   {"candidate-screening"},
	"documentation":        {"document-processing", "ocr"},
	"monitoring":           {"alerting", "scheduled-checks"},
	"ai-assisted":          {"llm-integration"},
	"healthcare":           {"form-processing"},
	"legal":                {"document-review"},
	"production":           {"sensor-integration"},
	"education":            {"content-generation"},
}

// industry detection cascade: first hit wins, ordered by priority.
var industryCascade = []struct {
	name     string
	keywords []string
}{
	{"finance", []string{"rechnung", "buchhaltung", "datev", "steuer", "bank", "invoice", "accounting", "controlling"}},
	{"marketing", []string{"marketing", "kampagne", "seo", "social media", "brand", "werbung"}},
	{"tech", []string{"software", "entwickler", "developer", "cloud", "api", "saas", "it-"}},
	{"healthcare", []string{"patient", "klinik", "praxis", "medizin", "medical"}},
	{"hr", []string{"recruiting", "personal", "bewerber", "human resources"}},
	{"production", []string{"produktion", "fertigung", "manufacturing", "werk"}},
	{"education", []string{"schule", "unterricht", "universität", "bildung", "teaching"}},
	{"legal", []string{"kanzlei", "recht", "legal", "notar"}},
}

// Score rates a single task text. jobTitleContext, when non-empty, only
// influences industry detection, not the signal scan itself.
//
// The returned Confidence equals the rounded score. That is a deliberate
// simplification kept for compatibility, not a calibrated probability.
func Score(taskText string, jobTitleContext string) ScoredTask {
	lower := strings.ToLower(taskText)

	var totalScore, totalWeight float64
	var signals []string
	var category string
	var categoryWeight float64

	for _, g := range signalGroups {
		if !anyKeyword(lower, g.keywords) {
			continue
		}
		totalScore += g.weight
		totalWeight += g.weight
		signals = append(signals, g.name)
		if g.weight > categoryWeight {
			categoryWeight = g.weight
			category = g.name
		}
	}

	industry := detectIndustry(lower + " " + strings.ToLower(jobTitleContext))
	if industry != "general" && totalWeight > 0 {
		totalScore += industryBonus
	}

	var score float64
	if totalWeight > 0 {
		score = math.Min(maxScore, math.Round(totalScore/totalWeight*maxScore))
	}

	// Signal-count damping: a single detected theme is weak evidence, three
	// or more confirm each other.
	switch {
	case len(signals) == 1:
		score *= singleSignalDamping
	case len(signals) >= 3:
		score = math.Min(maxScore, score*multiSignalBoost)
	}

	// Category ceilings.
	if hasSignal(signals, "human-interaction") || hasSignal(signals, "creative-strategy") {
		score = math.Min(score, 40)
	}
	if hasSignal(signals, "management") {
		score = math.Min(score, 60)
	}
	if hasSignal(signals, "documentation") || hasSignal(signals, "data-analysis") {
		score = math.Min(score, 80)
	}

	score = math.Max(0, math.Min(maxScore, score))
	final := int(math.Round(score))

	if category == "" {
		category = "general"
	}

	return ScoredTask{
		Text:                    taskText,
		Score:                   final,
		Label:                   labelFor(final),
		Category:                category,
		Industry:                industry,
		Complexity:              complexityFor(signals),
		AutomationTrend:         trendFor(signals, final),
		Confidence:              final,
		Signals:                 signals,
		RecommendedCapabilities: capabilitiesFor(signals),
	}
}

func labelFor(score int) Label {
	switch {
	case score >= thresholdAutomatable:
		return LabelAutomatable
	case score >= thresholdPartial:
		return LabelPartiallyAutomatable
	default:
		return LabelHuman
	}
}

func complexityFor(signals []string) Complexity {
	if hasSignal(signals, "human-interaction") || hasSignal(signals, "creative-strategy") {
		return ComplexityHigh
	}
	if hasSignal(signals, "data-analysis") || hasSignal(signals, "documentation") {
		return ComplexityLow
	}
	return ComplexityMedium
}

func trendFor(signals []string, score int) Trend {
	if (hasSignal(signals, "software-development") || hasSignal(signals, "finance")) && score >= 70 {
		return TrendIncreasing
	}
	if (hasSignal(signals, "healthcare") || hasSignal(signals, "legal")) && score <= 25 {
		return TrendDecreasing
	}
	return TrendStable
}

func capabilitiesFor(signals []string) []string {
	seen := make(map[string]bool)
	var caps []string
	for _, s := range signals {
		for _, c := range capabilityBySignal[s] {
			if !seen[c] {
				seen[c] = true
				caps = append(caps, c)
			}
		}
	}
	return caps
}

func detectIndustry(lower string) string {
	for _, ind := range industryCascade {
		if anyKeyword(lower, ind.keywords) {
			return ind.name
		}
	}
	return "general"
}

func anyKeyword(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func hasSignal(signals []string, name string) bool {
	for _, s := range signals {
		if s == name {
			return true
		}
	}
	return false
}
