package generation_service

import (
	"context"
	"fmt"
	"strings"
)

// RewriteEditPrompt frames a bare scene description as a background change.
// Prompts that already mention a background pass through untouched.
func RewriteEditPrompt(prompt string) string {
	if strings.Contains(strings.ToLower(prompt), "background") {
		return prompt
	}
	return "Change the background to " + prompt
}

// ImageEditor applies a text instruction to a source image.
type ImageEditor struct {
	client       ModelClient
	defaultModel string
}

func NewImageEditor(client ModelClient, defaultModel string) *ImageEditor {
	return &ImageEditor{client: client, defaultModel: defaultModel}
}

func (e *ImageEditor) Edit(ctx context.Context, image []byte, mimeType, prompt, model string) ([]byte, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: source image is required", ErrInvalidInput)
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	if model == "" {
		model = e.defaultModel
	}
	parts := []Part{BytesPart(image, mimeType), TextPart(RewriteEditPrompt(prompt))}
	res, err := e.client.GenerateContent(ctx, model, parts, imageContentConfig())
	if err != nil {
		return nil, fmt.Errorf("edit image: %w", err)
	}
	return firstImage(res)
}
