// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// OpenAIProvider submits evidence to the OpenAI chat completions API. The
// answer comes back inline in the first choice.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIProvider returns an OpenAI adapter for one run. A nil hc uses
// http.DefaultClient.
func NewOpenAIProvider(apiKey, model string, cfg types.AIConfig, hc *http.Client) *OpenAIProvider {
	conf := openai.DefaultConfig(apiKey)
	if cfg.OpenAIBaseURL != "" {
		conf.BaseURL = strings.TrimSuffix(cfg.OpenAIBaseURL, "/")
	}
	if hc != nil {
		conf.HTTPClient = hc
	}
	maxTokens := cfg.OpenAIMaxCompletionTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(conf), model: model, maxTokens: maxTokens}
}

// Name returns the provider tag.
func (p *OpenAIProvider) Name() types.Provider { return types.ProviderOpenAI }

// Submit requests a schema-constrained verdict. When the model rejects the
// structured response format, the request is repeated once without it.
func (p *OpenAIProvider) Submit(ctx context.Context, bundle *types.EvidenceBundle) (types.AnalyzerVerdict, error) {
	user, err := renderUserPrompt(bundle)
	if err != nil {
		return types.AnalyzerVerdict{}, &Error{Kind: KindFailure, Provider: types.ProviderOpenAI, Message: err.Error(), Err: err}
	}

	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxCompletionTokens: p.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "gene_disease_verdict",
				Schema: &verdictSchema,
			},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil && rejectsResponseFormat(err) {
		req.ResponseFormat = nil
		resp, err = p.client.CreateChatCompletion(ctx, req)
	}
	if err != nil {
		return types.AnalyzerVerdict{}, classifyOpenAI(err, resp.Header())
	}
	if len(resp.Choices) == 0 {
		return types.AnalyzerVerdict{}, &Error{Kind: KindFailure, Provider: types.ProviderOpenAI, Message: "OpenAI returned no choices"}
	}
	return ParseVerdict(resp.Choices[0].Message.Content, false), nil
}

// rejectsResponseFormat reports a 400 that names the response_format
// parameter.
func rejectsResponseFormat(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode != http.StatusBadRequest {
			return false
		}
		if apiErr.Param != nil && strings.Contains(*apiErr.Param, "response_format") {
			return true
		}
		return strings.Contains(strings.ToLower(apiErr.Message), "response_format")
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusBadRequest &&
			strings.Contains(strings.ToLower(string(reqErr.Body)), "response_format")
	}
	return false
}

func classifyOpenAI(err error, header http.Header) *Error {
	retryAfter := parseRetryAfter(header, time.Now())

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		detail := apiErr.Message
		if code, ok := apiErr.Code.(string); ok && code != "" {
			detail = fmt.Sprintf("%s (%s)", detail, code)
		} else if apiErr.Type != "" {
			detail = fmt.Sprintf("%s (%s)", detail, apiErr.Type)
		}
		return classifyStatus(types.ProviderOpenAI, apiErr.HTTPStatusCode, detail, retryAfter, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return classifyStatus(types.ProviderOpenAI, reqErr.HTTPStatusCode, string(reqErr.Body), retryAfter, err)
	}
	return classifyTransport(types.ProviderOpenAI, err)
}
