// Package llm drafts automation blueprints for tasks with no catalog
// coverage. Backends are pluggable; the Planner guarantees a usable
// blueprint even when every backend is down.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Solution types a blueprint can describe.
const (
	SolutionWorkflow = "workflow"
	SolutionAgent    = "agent"
)

// Request carries the task context a blueprint is drafted from.
type Request struct {
	JobTitle        string
	TaskTitle       string
	TaskDescription string
	Systems         []string
	SolutionType    string // workflow or agent; empty means workflow
}

// Blueprint is a drafted automation outline.
type Blueprint struct {
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	SolutionType string   `json:"solutionType"`
	Steps        []string `json:"steps"`
	Integrations []string `json:"integrations,omitempty"`
}

// Engine abstracts an inference backend. Consumers hold the interface, not a
// concrete client.
type Engine interface {
	// Name identifies the backend in logs and responses.
	Name() string

	// Available reports whether the backend is reachable.
	Available(ctx context.Context) bool

	// GenerateBlueprint drafts an automation outline for the request.
	GenerateBlueprint(ctx context.Context, req Request) (*Blueprint, error)
}

// ErrNoBackend is returned by the disabled engine for every generation call.
var ErrNoBackend = errors.New("no inference backend configured")

// Disabled is the engine used when no backend is configured. The Planner
// turns its errors into fixed fallback blueprints.
type Disabled struct{}

func (Disabled) Name() string                   { return "disabled" }
func (Disabled) Available(context.Context) bool { return false }

func (Disabled) GenerateBlueprint(context.Context, Request) (*Blueprint, error) {
	return nil, ErrNoBackend
}

// Planner wraps an Engine and never fails: on backend errors or junk output
// it degrades to a deterministic fallback blueprint.
type Planner struct {
	engine Engine
	logger *zap.Logger
}

// NewPlanner builds a Planner. A nil engine behaves like Disabled.
func NewPlanner(engine Engine, logger *zap.Logger) *Planner {
	if engine == nil {
		engine = Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{engine: engine, logger: logger}
}

// Plan drafts a blueprint for the request. The second return value reports
// whether the blueprint came from the backend (true) or the fallback path.
func (p *Planner) Plan(ctx context.Context, req Request) (Blueprint, bool) {
	if req.SolutionType == "" {
		req.SolutionType = SolutionWorkflow
	}

	bp, err := p.engine.GenerateBlueprint(ctx, req)
	if err != nil {
		if !errors.Is(err, ErrNoBackend) {
			p.logger.Warn("blueprint generation failed, using fallback",
				zap.String("backend", p.engine.Name()),
				zap.Error(err))
		}
		return Fallback(req), false
	}
	bp.SolutionType = normalizeSolutionType(bp.SolutionType, req.SolutionType)
	if len(bp.Integrations) == 0 {
		bp.Integrations = req.Systems
	}
	return *bp, true
}

// Fallback builds a deterministic blueprint from the request alone.
func Fallback(req Request) Blueprint {
	st := normalizeSolutionType(req.SolutionType, SolutionWorkflow)
	title := strings.TrimSpace(req.TaskTitle)
	if title == "" {
		title = "Automation draft"
	}
	return Blueprint{
		Title:        title + " (Automatisierungsvorlage)",
		Summary:      fmt.Sprintf("Vorlage zur Automatisierung von: %s", title),
		SolutionType: st,
		Steps:        FallbackSteps(st),
		Integrations: req.Systems,
	}
}

// FallbackSteps returns the fixed step list for a solution type.
func FallbackSteps(solutionType string) []string {
	if normalizeSolutionType(solutionType, SolutionWorkflow) == SolutionAgent {
		return []string{
			"Zielsetzung und Grenzen des Agenten festlegen",
			"Benötigte Datenquellen und Werkzeuge anbinden",
			"Prompt und Entscheidungsregeln formulieren",
			"Freigabeschritt für kritische Aktionen einbauen",
			"Ergebnisse protokollieren und regelmäßig prüfen",
		}
	}
	return []string{
		"Auslöser des Workflows definieren (z.B. neue E-Mail, Zeitplan)",
		"Quellsystem anbinden und Daten abrufen",
		"Daten umwandeln und in das Zielsystem übertragen",
		"Validierung und Fehlerbenachrichtigung ergänzen",
		"Testlauf mit Echtdaten durchführen und aktivieren",
	}
}

func normalizeSolutionType(raw, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case SolutionAgent, "ai agent", "ki-agent", "assistant":
		return SolutionAgent
	case SolutionWorkflow, "pipeline", "integration":
		return SolutionWorkflow
	default:
		if fallback == SolutionAgent {
			return SolutionAgent
		}
		return SolutionWorkflow
	}
}

// prompt renders the shared generation prompt used by all backends.
func prompt(req Request) string {
	var b strings.Builder
	b.WriteString("Entwirf eine Automatisierungslösung für die folgende Aufgabe.\n")
	if req.JobTitle != "" {
		b.WriteString("Rolle: " + req.JobTitle + "\n")
	}
	b.WriteString("Aufgabe: " + req.TaskTitle + "\n")
	if req.TaskDescription != "" {
		b.WriteString("Details: " + req.TaskDescription + "\n")
	}
	if len(req.Systems) > 0 {
		b.WriteString("Systeme: " + strings.Join(req.Systems, ", ") + "\n")
	}
	b.WriteString("Lösungstyp: " + req.SolutionType + "\n")
	b.WriteString(`Antworte nur mit einem JSON-Objekt: {"title": string, "summary": string, "solutionType": string, "steps": [string], "integrations": [string]}`)
	return b.String()
}
