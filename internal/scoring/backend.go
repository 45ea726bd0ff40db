// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scoring sends pending papers through a local language model
// and records the verdicts in the archive. Every stored outcome is
// terminal: a paper is either scored or failed-permanently, and
// anything interrupted mid-flight stays pending for the next run.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/litwatch/pkg/types"
)

// ModelBackend generates completions for scoring prompts. Name
// identifies the model for reports and progress output.
type ModelBackend interface {
	Name() string
	CheckReady(ctx context.Context) error
	Generate(ctx context.Context, system, user string) (string, error)
}

// OllamaBackend talks to a local Ollama server over its chat API.
type OllamaBackend struct {
	client      *http.Client
	baseURL     string
	model       string
	temperature float64
}

// NewOllamaBackend builds a backend from scoring configuration,
// falling back to the stock local server and model when unset.
func NewOllamaBackend(cfg types.ScoringConfig) *OllamaBackend {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "mistral"
	}
	return &OllamaBackend{
		client:      &http.Client{},
		baseURL:     baseURL,
		model:       model,
		temperature: cfg.Temperature,
	}
}

// Name returns the configured model name.
func (b *OllamaBackend) Name() string {
	return b.model
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// CheckReady verifies the server is reachable and the configured model
// is pulled.
func (b *OllamaBackend) CheckReady(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable at %s: %w", b.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("decoding model list: %w", err)
	}

	want := baseModelName(b.model)
	var available []string
	for _, m := range tags.Models {
		name := baseModelName(m.Name)
		if name == want {
			return nil
		}
		available = append(available, name)
	}
	return fmt.Errorf("model %q not available (pulled models: %s)", b.model, strings.Join(available, ", "))
}

// baseModelName strips the tag suffix, so "mistral:7b" matches a
// configured "mistral".
func baseModelName(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}

// Generate sends one chat completion request and returns the model's
// reply text. Streaming is disabled so the reply arrives whole.
func (b *OllamaBackend) Generate(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model: b.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:  false,
		Options: ollamaOptions{Temperature: b.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var chat ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	return strings.TrimSpace(chat.Message.Content), nil
}
