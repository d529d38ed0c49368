package providers

import (
	"context"
	"fmt"
	"net/http"

	"gopkg.in/yaml.v3"
)

// Curated fetches the curated agent list: a YAML manifest with an "agents"
// sequence of name/description/capabilities entries.
type Curated struct {
	endpoint string
	client   *http.Client
}

func NewCurated(endpoint string, client *http.Client) *Curated {
	if client == nil {
		client = defaultClient()
	}
	return &Curated{endpoint: endpoint, client: client}
}

func (c *Curated) Key() string { return "curated" }

func (c *Curated) Fetch(ctx context.Context) ([]map[string]any, error) {
	body, err := get(ctx, c.client, c.endpoint)
	if err != nil {
		return nil, err
	}

	var manifest struct {
		Agents []map[string]any `yaml:"agents"`
	}
	if err := yaml.Unmarshal(body, &manifest); err != nil {
		return nil, fmt.Errorf("decoding curated manifest: %w", err)
	}

	// Mark entries so normalization classifies them as agents even when a
	// manifest entry forgot its capabilities.
	for _, rec := range manifest.Agents {
		if _, ok := rec["type"]; !ok {
			rec["type"] = "agent"
		}
	}
	return manifest.Agents, nil
}
