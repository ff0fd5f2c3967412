// Package gemini wraps the Gemini API as the extraction service: one prompt
// plus one payload (markdown text, image, or PDF) in, one text response out.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"collector/internal/core/fetch"
	"collector/internal/logger"
)

// Params are the per-call generation settings. Zero values fall back to the
// model defaults except Temperature, which is always sent.
type Params struct {
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

// Result carries the response text and token accounting for cost logging.
type Result struct {
	Text         string
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type Service struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

func New(ctx context.Context, apiKey, model string) (*Service, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Service{client: client, model: model, log: logger.New("Gemini")}, nil
}

// Generate sends prompt and payload to the model. Cancellation and deadline
// come from ctx; callers wrap it with their per-call timeout.
func (s *Service) Generate(ctx context.Context, prompt string, payload *fetch.Content, p Params) (*Result, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if payload != nil {
		switch payload.Kind {
		case fetch.KindText:
			parts = append(parts, genai.NewPartFromText(payload.Text))
		case fetch.KindImage, fetch.KindPDF:
			parts = append(parts, genai.NewPartFromBytes(payload.Body, payload.MIME))
		default:
			return nil, fmt.Errorf("unsupported payload kind %q", payload.Kind)
		}
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(p.Temperature)),
	}
	if p.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(p.TopP))
	}
	if p.TopK > 0 {
		cfg.TopK = genai.Ptr(float32(p.TopK))
	}
	if p.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(p.MaxOutputTokens)
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	res := &Result{Text: responseText(resp)}
	if resp.UsageMetadata != nil {
		res.InputTokens = resp.UsageMetadata.PromptTokenCount
		res.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
		res.TotalTokens = resp.UsageMetadata.TotalTokenCount
	}
	if strings.TrimSpace(res.Text) == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	s.log.LogDebugf("generate ok model=%s tokens=%d/%d", s.model, res.InputTokens, res.OutputTokens)
	return res, nil
}

// Model returns the configured model name, recorded as ai_version in output
// rows.
func (s *Service) Model() string { return s.model }

func responseText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
