package generation_service

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIClient implements ModelClient on the Gemini / Vertex AI SDK.
type GenAIClient struct {
	client *genai.Client
}

var _ ModelClient = (*GenAIClient)(nil)

// NewGenAIClient connects to Vertex AI for project and location. Credentials
// come from the environment (ADC).
func NewGenAIClient(ctx context.Context, project, location string) (*GenAIClient, error) {
	if project == "" {
		return nil, fmt.Errorf("genai project is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  project,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIClient{client: client}, nil
}

func toGenAIParts(parts []Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if len(p.Data) > 0 {
			out = append(out, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		out = append(out, genai.NewPartFromText(p.Text))
	}
	return out
}

func toGenAIConfig(cfg *ContentConfig) *genai.GenerateContentConfig {
	if cfg == nil {
		return nil
	}
	out := &genai.GenerateContentConfig{
		Temperature:        cfg.Temperature,
		TopP:               cfg.TopP,
		TopK:               cfg.TopK,
		MaxOutputTokens:    cfg.MaxOutputTokens,
		ResponseMIMEType:   cfg.ResponseMIMEType,
		ResponseModalities: cfg.ResponseModalities,
	}
	if cfg.SystemInstruction != "" {
		out.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}
	return out
}

func (c *GenAIClient) GenerateContent(ctx context.Context, model string, parts []Part, cfg *ContentConfig) (*ContentResult, error) {
	contents := []*genai.Content{genai.NewContentFromParts(toGenAIParts(parts), genai.RoleUser)}
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, toGenAIConfig(cfg))
	if err != nil {
		return nil, err
	}

	res := &ContentResult{}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return res, nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			res.Blobs = append(res.Blobs, BytesPart(part.InlineData.Data, part.InlineData.MIMEType))
		}
		res.Text += part.Text
	}
	return res, nil
}

func (c *GenAIClient) RecontextImage(ctx context.Context, model string, person, product []byte) ([]byte, error) {
	source := &genai.RecontextImageSource{
		PersonImage: &genai.Image{ImageBytes: person, MIMEType: "image/jpeg"},
		ProductImages: []*genai.ProductImage{
			{ProductImage: &genai.Image{ImageBytes: product, MIMEType: "image/jpeg"}},
		},
	}
	resp, err := c.client.Models.RecontextImage(ctx, model, source, &genai.RecontextImageConfig{
		OutputMIMEType:    "image/jpeg",
		SafetyFilterLevel: genai.SafetyFilterLevelBlockLowAndAbove,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, nil
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

// genaiVideoOperation adapts the SDK operation to VideoOperation.
type genaiVideoOperation struct {
	op *genai.GenerateVideosOperation
}

func (o genaiVideoOperation) Done() bool {
	return o.op != nil && o.op.Done
}

func (o genaiVideoOperation) Videos() [][]byte {
	if o.op == nil || o.op.Response == nil {
		return nil
	}
	var out [][]byte
	for _, v := range o.op.Response.GeneratedVideos {
		if v != nil && v.Video != nil {
			out = append(out, v.Video.VideoBytes)
		}
	}
	return out
}

func (o genaiVideoOperation) Err() error {
	if o.op == nil || len(o.op.Error) == 0 {
		return nil
	}
	return fmt.Errorf("operation %s: %v", o.op.Name, o.op.Error)
}

func (c *GenAIClient) StartVideo(ctx context.Context, model string, req VideoRequest) (VideoOperation, error) {
	var image *genai.Image
	if len(req.Image) > 0 {
		image = &genai.Image{ImageBytes: req.Image, MIMEType: req.ImageMIMEType}
	}
	cfg := &genai.GenerateVideosConfig{
		AspectRatio:     req.AspectRatio,
		Resolution:      req.Resolution,
		NumberOfVideos:  1,
		DurationSeconds: genai.Ptr(req.DurationSeconds),
		GenerateAudio:   genai.Ptr(req.GenerateAudio),
	}
	op, err := c.client.Models.GenerateVideos(ctx, model, req.Prompt, image, cfg)
	if err != nil {
		return nil, err
	}
	return genaiVideoOperation{op: op}, nil
}

func (c *GenAIClient) PollVideo(ctx context.Context, op VideoOperation) (VideoOperation, error) {
	current, ok := op.(genaiVideoOperation)
	if !ok {
		return nil, fmt.Errorf("unexpected operation type %T", op)
	}
	next, err := c.client.Operations.GetVideosOperation(ctx, current.op, nil)
	if err != nil {
		return nil, err
	}
	return genaiVideoOperation{op: next}, nil
}
