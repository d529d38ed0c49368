package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Community fetches the community repository listing: a flat JSON array of
// workflow files with filename/name/description/nodes fields.
type Community struct {
	endpoint string
	client   *http.Client
}

// NewCommunity creates a Community provider for the given listing endpoint.
// A nil client gets a default with a 10s timeout.
func NewCommunity(endpoint string, client *http.Client) *Community {
	if client == nil {
		client = defaultClient()
	}
	return &Community{endpoint: endpoint, client: client}
}

func (c *Community) Key() string { return "community" }

func (c *Community) Fetch(ctx context.Context) ([]map[string]any, error) {
	body, err := get(ctx, c.client, c.endpoint)
	if err != nil {
		return nil, err
	}

	var records []map[string]any
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decoding community listing: %w", err)
	}
	return records, nil
}
