// Package catalog maintains a normalized, versioned, multi-source collection
// of automation artifacts (workflow templates and agent descriptors), with
// per-source and unioned views, deduplication and search.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Kind separates process templates from autonomous-agent descriptors.
type Kind string

const (
	KindWorkflow Kind = "workflow"
	KindAgent    Kind = "agent"
)

// Trigger is the workflow trigger type.
type Trigger string

const (
	TriggerWebhook   Trigger = "Webhook"
	TriggerScheduled Trigger = "Scheduled"
	TriggerManual    Trigger = "Manual"
	TriggerComplex   Trigger = "Complex"
)

// Tier is the artifact complexity tier.
type Tier string

const (
	TierLow    Tier = "Low"
	TierMedium Tier = "Medium"
	TierHigh   Tier = "High"
)

// Artifact is the canonical catalog record every provider payload is coerced
// into. Identity is (Source, ID); artifacts from different sources are never
// merged.
type Artifact struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Kind         Kind      `json:"kind"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Category     string    `json:"category"`
	Integrations []string  `json:"integrations"`
	Complexity   Tier      `json:"complexity"`
	Trigger      Trigger   `json:"trigger,omitempty"`      // workflows only
	Capabilities []string  `json:"capabilities,omitempty"` // agents only
	Tags         []string  `json:"tags,omitempty"`
	License      string    `json:"license,omitempty"`
	Author       string    `json:"author,omitempty"`
	ContentHash  string    `json:"contentHash"`
	LastAnalyzed time.Time `json:"lastAnalyzed"`
	Active       bool      `json:"active"`
}

// Key is the identity key used for within-source deduplication.
func (a Artifact) Key() string {
	return a.Source + "/" + a.ID
}

// unionKey is the cross-snapshot dedup key for the "all" view: the normalized
// ID (which itself falls back to filename, then name).
func (a Artifact) unionKey() string {
	if a.ID != "" {
		return a.ID
	}
	return strings.ToLower(a.Title)
}

// inbound is the loose shape provider payloads are decoded into before
// canonicalization. Field names cover the union of all provider schemas.
type inbound struct {
	ID          string `mapstructure:"id"`
	Filename    string `mapstructure:"filename"`
	Name        string `mapstructure:"name"`
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Summary     string `mapstructure:"summary"`
	Category    string `mapstructure:"category"`
	Type        string `mapstructure:"type"`

	Integrations []any  `mapstructure:"integrations"`
	Nodes        []any  `mapstructure:"nodes"`
	Capabilities []any  `mapstructure:"capabilities"`
	Tags         []any  `mapstructure:"tags"`
	TriggerType  string `mapstructure:"triggerType"`
	Complexity   string `mapstructure:"complexity"`
	License      string `mapstructure:"license"`
	Author       any    `mapstructure:"author"`
	Active       *bool  `mapstructure:"active"`
}

// Normalize coerces one heterogeneous provider record into an Artifact.
// Missing fields are filled by deterministic inference; records without any
// usable identity or title are rejected.
func Normalize(source string, raw map[string]any, fetchedAt time.Time) (Artifact, error) {
	var in inbound
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &in,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("building decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return Artifact{}, fmt.Errorf("decoding %s record: %w", source, err)
	}

	title := firstNonEmpty(in.Title, in.Name, titleFromFilename(in.Filename))
	id := firstNonEmpty(in.ID, in.Filename, in.Name, title)
	if id == "" {
		return Artifact{}, fmt.Errorf("%s record has no identity (id, filename or name)", source)
	}

	integrations := stringList(in.Integrations)
	if len(integrations) == 0 {
		integrations = stringList(in.Nodes)
	}
	capabilities := stringList(in.Capabilities)

	kind := KindWorkflow
	if in.Type == "agent" || len(capabilities) > 0 {
		kind = KindAgent
	}

	summary := firstNonEmpty(in.Description, in.Summary)

	category := in.Category
	if category == "" {
		if len(integrations) > 0 {
			category = integrations[0]
		} else {
			category = "General"
		}
	}

	trigger := parseTrigger(in.TriggerType)
	if trigger == "" && kind == KindWorkflow {
		trigger = inferTrigger(in.Filename+" "+title+" "+summary, len(integrations))
	}

	tier := parseTier(in.Complexity)
	if tier == "" {
		tier = inferTier(len(integrations))
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	hash := sha256.Sum256([]byte(title + "\n" + summary))

	return Artifact{
		ID:           id,
		Source:       source,
		Kind:         kind,
		Title:        title,
		Summary:      summary,
		Category:     category,
		Integrations: integrations,
		Complexity:   tier,
		Trigger:      trigger,
		Capabilities: capabilities,
		Tags:         stringList(in.Tags),
		License:      in.License,
		Author:       authorName(in.Author),
		ContentHash:  hex.EncodeToString(hash[:]),
		LastAnalyzed: fetchedAt.UTC(),
		Active:       active,
	}, nil
}

// inferTrigger guesses the workflow trigger from filename/title keywords;
// heavily wired workflows default to Complex, everything else to Manual.
func inferTrigger(text string, integrationCount int) Trigger {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "webhook"):
		return TriggerWebhook
	case strings.Contains(lower, "cron"),
		strings.Contains(lower, "schedul"),
		strings.Contains(lower, "daily"),
		strings.Contains(lower, "interval"):
		return TriggerScheduled
	case integrationCount >= 6:
		return TriggerComplex
	default:
		return TriggerManual
	}
}

func inferTier(integrationCount int) Tier {
	switch {
	case integrationCount <= 2:
		return TierLow
	case integrationCount <= 5:
		return TierMedium
	default:
		return TierHigh
	}
}

func parseTrigger(s string) Trigger {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "webhook":
		return TriggerWebhook
	case "scheduled", "schedule", "cron":
		return TriggerScheduled
	case "manual":
		return TriggerManual
	case "complex":
		return TriggerComplex
	default:
		return ""
	}
}

func parseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "easy":
		return TierLow
	case "medium":
		return TierMedium
	case "high", "hard":
		return TierHigh
	default:
		return ""
	}
}

// titleFromFilename turns "invoice_processing_datev.json" into
// "invoice processing datev".
func titleFromFilename(filename string) string {
	if filename == "" {
		return ""
	}
	name := filename
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

// stringList flattens a provider list that may contain plain strings or
// objects carrying a name/title field.
func stringList(items []any) []string {
	var out []string
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		case map[string]any:
			for _, key := range []string{"name", "title", "type"} {
				if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
					break
				}
			}
		}
	}
	return out
}

func authorName(author any) string {
	switch v := author.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"name", "username", "login"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
