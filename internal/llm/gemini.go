package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini drafts blueprints through the Google GenAI API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini engine for the Gemini API backend.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Available only checks initialization. The API is remote and metered, so
// there is no cheap liveness probe worth making per request.
func (g *Gemini) Available(context.Context) bool {
	return g != nil && g.client != nil
}

// GenerateBlueprint sends the prompt to Gemini and parses the JSON reply.
func (g *Gemini) GenerateBlueprint(ctx context.Context, req Request) (*Blueprint, error) {
	if g == nil || g.client == nil {
		return nil, errors.New("gemini engine is not initialized")
	}

	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt(req)), cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return nil, errors.New("gemini api returned empty response")
	}
	return decodeBlueprint(output)
}
