package generation_service

import (
	"context"
	"fmt"
)

// TryOnGenerator renders a person wearing a garment.
type TryOnGenerator struct {
	client ModelClient
	model  string
}

func NewTryOnGenerator(client ModelClient, model string) *TryOnGenerator {
	return &TryOnGenerator{client: client, model: model}
}

// TryOn returns JPEG bytes. category is accepted for API compatibility; the
// recontext model infers placement from the garment image.
func (g *TryOnGenerator) TryOn(ctx context.Context, person, garment []byte, category string) ([]byte, error) {
	if len(person) == 0 || len(garment) == 0 {
		return nil, fmt.Errorf("%w: person and garment images are required", ErrInvalidInput)
	}
	out, err := g.client.RecontextImage(ctx, g.model, person, garment)
	if err != nil {
		return nil, fmt.Errorf("try on: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrGenerationEmpty
	}
	return out, nil
}
