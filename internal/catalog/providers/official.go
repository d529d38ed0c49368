package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Official fetches the official template API: a JSON object wrapping a
// "workflows" array whose entries use id/title/summary/integrations fields.
type Official struct {
	endpoint string
	client   *http.Client
}

func NewOfficial(endpoint string, client *http.Client) *Official {
	if client == nil {
		client = defaultClient()
	}
	return &Official{endpoint: endpoint, client: client}
}

func (o *Official) Key() string { return "official" }

func (o *Official) Fetch(ctx context.Context) ([]map[string]any, error) {
	body, err := get(ctx, o.client, o.endpoint)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Workflows []map[string]any `json:"workflows"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding official template response: %w", err)
	}
	return payload.Workflows, nil
}
