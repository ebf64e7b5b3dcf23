// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// AnthropicProvider calls the Anthropic Messages API. The model may wrap its
// JSON in prose, so the first balanced object is extracted before parsing.
type AnthropicProvider struct {
	APIKey      string
	Model       string
	BaseURL     string
	Version     string
	MaxTokens   int
	Temperature float32
	Client      *http.Client
}

// NewAnthropicProvider returns an Anthropic adapter for one run.
func NewAnthropicProvider(apiKey, model string, cfg types.AIConfig, hc *http.Client) *AnthropicProvider {
	p := &AnthropicProvider{
		APIKey:      apiKey,
		Model:       model,
		BaseURL:     strings.TrimSuffix(cfg.AnthropicBaseURL, "/"),
		Version:     cfg.AnthropicVersion,
		MaxTokens:   cfg.AnthropicMaxTokens,
		Temperature: cfg.Temperature,
		Client:      hc,
	}
	if p.BaseURL == "" {
		p.BaseURL = "https://api.anthropic.com/v1"
	}
	if p.Version == "" {
		p.Version = "2023-06-01"
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = 2000
	}
	return p
}

// Name returns the provider tag.
func (p *AnthropicProvider) Name() types.Provider { return types.ProviderAnthropic }

// anthropicRequest is the request body for the Messages API.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Submit posts the evidence under the fixed system prompt and interprets the
// first text block of the reply.
func (p *AnthropicProvider) Submit(ctx context.Context, bundle *types.EvidenceBundle) (types.AnalyzerVerdict, error) {
	user, err := renderUserPrompt(bundle)
	if err != nil {
		return types.AnalyzerVerdict{}, &Error{Kind: KindFailure, Provider: types.ProviderAnthropic, Message: err.Error(), Err: err}
	}

	bodyBytes, err := json.Marshal(anthropicRequest{
		Model:       p.Model,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		System:      systemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: user}},
	})
	if err != nil {
		return types.AnalyzerVerdict{}, &Error{Kind: KindFailure, Provider: types.ProviderAnthropic,
			Message: fmt.Sprintf("marshaling request: %v", err), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return types.AnalyzerVerdict{}, &Error{Kind: KindFailure, Provider: types.ProviderAnthropic,
			Message: fmt.Sprintf("creating request: %v", err), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.APIKey)
	req.Header.Set("anthropic-version", p.Version)

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return types.AnalyzerVerdict{}, classifyTransport(types.ProviderAnthropic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := string(body)
		var eb anthropicErrorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error.Message != "" {
			detail = eb.Error.Message
		}
		return types.AnalyzerVerdict{}, classifyStatus(types.ProviderAnthropic, resp.StatusCode, detail,
			parseRetryAfter(resp.Header, time.Now()), fmt.Errorf("Anthropic API returned %d", resp.StatusCode))
	}

	var aResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&aResp); err != nil {
		return types.AnalyzerVerdict{}, classifyTransport(types.ProviderAnthropic, fmt.Errorf("decoding Anthropic response: %w", err))
	}
	for _, block := range aResp.Content {
		if block.Type == "text" {
			return ParseVerdict(block.Text, true), nil
		}
	}
	return types.AnalyzerVerdict{}, &Error{Kind: KindFailure, Provider: types.ProviderAnthropic,
		Message: "no text content in Anthropic API response"}
}
