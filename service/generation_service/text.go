package generation_service

import (
	"context"
	"fmt"
	"strings"
)

// TextOptions tune a text generation call.
type TextOptions struct {
	Model             string
	Temperature       float32
	TopP              float32
	TopK              int
	MaxOutputTokens   int
	ResponseMIMEType  string
	SystemInstruction string
}

// DefaultTextOptions are the values used when a request leaves a field out.
func DefaultTextOptions() TextOptions {
	return TextOptions{
		Temperature:      1.0,
		TopP:             0.95,
		TopK:             40,
		MaxOutputTokens:  8192,
		ResponseMIMEType: "text/plain",
	}
}

// TextGenerator returns model text verbatim.
type TextGenerator struct {
	client       ModelClient
	defaultModel string
}

func NewTextGenerator(client ModelClient, defaultModel string) *TextGenerator {
	return &TextGenerator{client: client, defaultModel: defaultModel}
}

func (g *TextGenerator) Generate(ctx context.Context, prompt string, opts TextOptions) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	model := opts.Model
	if model == "" {
		model = g.defaultModel
	}
	cfg := &ContentConfig{
		Temperature:       float32Ptr(opts.Temperature),
		TopP:              float32Ptr(opts.TopP),
		TopK:              float32Ptr(float32(opts.TopK)),
		MaxOutputTokens:   int32(opts.MaxOutputTokens),
		ResponseMIMEType:  opts.ResponseMIMEType,
		SystemInstruction: opts.SystemInstruction,
	}
	res, err := g.client.GenerateContent(ctx, model, []Part{TextPart(prompt)}, cfg)
	if err != nil {
		return "", fmt.Errorf("generate text: %w", err)
	}
	if res == nil {
		return "", ErrGenerationEmpty
	}
	return res.Text, nil
}
