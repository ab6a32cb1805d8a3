package generation_service

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

type canvasSize struct {
	Width  int
	Height int
}

// aspectCanvases maps an aspect ratio to the blank canvas that steers the
// image model toward that shape.
var aspectCanvases = map[string]canvasSize{
	"1:1":  {1024, 1024},
	"3:4":  {768, 1024},
	"4:3":  {1024, 768},
	"9:16": {720, 1280},
	"16:9": {1280, 720},
}

// CanvasFor returns the canvas size for ratio, 1024x1024 when unknown.
func CanvasFor(ratio string) (int, int) {
	if c, ok := aspectCanvases[strings.TrimSpace(ratio)]; ok {
		return c.Width, c.Height
	}
	return 1024, 1024
}

// BlankCanvas renders a white PNG of the given size.
func BlankCanvas(width, height int) ([]byte, error) {
	img := imaging.New(width, height, color.White)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode canvas: %w", err)
	}
	return buf.Bytes(), nil
}

func imageContentConfig() *ContentConfig {
	return &ContentConfig{
		Temperature:        float32Ptr(1),
		TopP:               float32Ptr(0.95),
		MaxOutputTokens:    32768,
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
}

// firstImage returns the first non-empty inline blob of a content result.
func firstImage(res *ContentResult) ([]byte, error) {
	if res != nil {
		for _, b := range res.Blobs {
			if len(b.Data) > 0 {
				return b.Data, nil
			}
		}
	}
	return nil, ErrGenerationEmpty
}

// ImageGenerator turns a prompt and aspect ratio into a PNG.
type ImageGenerator struct {
	client       ModelClient
	defaultModel string
}

func NewImageGenerator(client ModelClient, defaultModel string) *ImageGenerator {
	return &ImageGenerator{client: client, defaultModel: defaultModel}
}

func (g *ImageGenerator) Generate(ctx context.Context, prompt, aspectRatio, model string) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	if model == "" {
		model = g.defaultModel
	}
	canvas, err := BlankCanvas(CanvasFor(aspectRatio))
	if err != nil {
		return nil, err
	}
	res, err := g.client.GenerateContent(ctx, model, []Part{BytesPart(canvas, "image/png"), TextPart(prompt)}, imageContentConfig())
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	return firstImage(res)
}

func float32Ptr(v float32) *float32 {
	return &v
}
