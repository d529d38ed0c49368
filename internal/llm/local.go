package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// message is a chat message in the Ollama API format.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// schema describes the expected JSON output structure for structured chat
// responses.
type schema struct {
	Type       string                    `json:"type"`
	Properties map[string]schemaProperty `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

type schemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Items       any    `json:"items,omitempty"`
}

// blueprintSchema constrains local-model output to the Blueprint shape.
var blueprintSchema = &schema{
	Type: "object",
	Properties: map[string]schemaProperty{
		"title":        {Type: "string", Description: "Short solution name"},
		"summary":      {Type: "string", Description: "One-sentence description"},
		"solutionType": {Type: "string", Description: "workflow or agent"},
		"steps":        {Type: "array", Items: schemaProperty{Type: "string"}},
		"integrations": {Type: "array", Items: schemaProperty{Type: "string"}},
	},
	Required: []string{"title", "summary", "solutionType", "steps"},
}

// Local talks to an Ollama-compatible server over HTTP.
type Local struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewLocal creates a Local engine targeting the given base URL.
func NewLocal(baseURL, model string) *Local {
	return &Local{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 0,
		},
	}
}

func (l *Local) Name() string { return "local" }

// Available reports whether the server responds to GET /api/tags with 200.
func (l *Local) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
	Format   any       `json:"format,omitempty"`
}

// chatResponse is the JSON returned by POST /api/chat (non-streaming).
type chatResponse struct {
	Message message `json:"message"`
}

// GenerateBlueprint asks the local model for a structured blueprint.
func (l *Local) GenerateBlueprint(ctx context.Context, req Request) (*Blueprint, error) {
	raw, err := l.chat(ctx, []message{{Role: "user", Content: prompt(req)}}, blueprintSchema)
	if err != nil {
		return nil, err
	}
	return decodeBlueprint(raw)
}

func (l *Local) chat(ctx context.Context, messages []message, jsonSchema *schema) (string, error) {
	cr := chatRequest{
		Model:    l.model,
		Messages: messages,
		Stream:   false,
	}
	if jsonSchema != nil {
		cr.Format = jsonSchema
	}

	body, err := json.Marshal(cr)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat: unexpected status %d", resp.StatusCode)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}

	return result.Message.Content, nil
}
