// Package gemini wraps the Google Gemini API as the generation backend:
// model listing and streaming content generation.
package gemini

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when a request names no model and is always kept in
// the availability list.
const DefaultModel = "gemini-2.0-flash"

// Client communicates with the Gemini API.
type Client struct {
	genai *genai.Client
}

// New creates a Client authenticated with apiKey.
func New(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Client{genai: c}, nil
}

// ListModels returns the sorted names of models that support content
// generation, with the `models/` prefix stripped.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var names []string
	for m, err := range c.genai.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("listing models: %w", err)
		}
		if !slices.Contains(m.SupportedActions, "generateContent") {
			continue
		}
		name := strings.TrimPrefix(m.Name, "models/")
		if !strings.HasPrefix(name, "gemini") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// StreamGenerate submits prompt to model and calls fn for each text chunk in
// stream order. A non-nil error from fn stops the stream and is returned
// unchanged, so callers can cancel by failing fast.
func (c *Client) StreamGenerate(ctx context.Context, model, prompt string, fn func(text string) error) error {
	for resp, err := range c.genai.Models.GenerateContentStream(ctx, model, genai.Text(prompt), nil) {
		if err != nil {
			return fmt.Errorf("generating content: %w", err)
		}
		if text := resp.Text(); text != "" {
			if err := fn(text); err != nil {
				return err
			}
		}
	}
	return nil
}
