package generation_service

import "context"

// Part is one piece of multimodal input: text, or inline bytes with a MIME type.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func BytesPart(data []byte, mimeType string) Part {
	return Part{Data: data, MIMEType: mimeType}
}

// ContentConfig mirrors the knobs of a content generation call. Nil pointers
// leave the model default in place.
type ContentConfig struct {
	Temperature        *float32
	TopP               *float32
	TopK               *float32
	MaxOutputTokens    int32
	ResponseMIMEType   string
	SystemInstruction  string
	ResponseModalities []string
}

// ContentResult is what a content call produced: concatenated text and any
// inline blobs, in response order.
type ContentResult struct {
	Text  string
	Blobs []Part
}

// VideoRequest is the create call of a video job.
type VideoRequest struct {
	Prompt          string
	Image           []byte
	ImageMIMEType   string
	AspectRatio     string
	Resolution      string
	DurationSeconds int32
	GenerateAudio   bool
}

// VideoOperation is an opaque handle to a long-running video job.
type VideoOperation interface {
	Done() bool
	// Videos returns the finished clips; empty until Done.
	Videos() [][]byte
	// Err is the job's own failure, if the service reported one.
	Err() error
}

// ModelClient is the narrow surface the adapters need from a generative
// model service.
type ModelClient interface {
	GenerateContent(ctx context.Context, model string, parts []Part, cfg *ContentConfig) (*ContentResult, error)
	// RecontextImage dresses the person in the product and returns the
	// first generated image, or nil when none was produced.
	RecontextImage(ctx context.Context, model string, person, product []byte) ([]byte, error)
	StartVideo(ctx context.Context, model string, req VideoRequest) (VideoOperation, error)
	PollVideo(ctx context.Context, op VideoOperation) (VideoOperation, error)
}
