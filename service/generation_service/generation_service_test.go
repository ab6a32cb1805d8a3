package generation_service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"fashion-studio/common"
	"fashion-studio/conf"
	"fashion-studio/model"

	"github.com/disintegration/imaging"
)

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func TestCanvasForAspectRatios(t *testing.T) {
	cases := map[string][2]int{
		"1:1":     {1024, 1024},
		"3:4":     {768, 1024},
		"4:3":     {1024, 768},
		"9:16":    {720, 1280},
		"16:9":    {1280, 720},
		"21:9":    {1024, 1024},
		"":        {1024, 1024},
		"garbage": {1024, 1024},
	}
	for ratio, want := range cases {
		w, h := CanvasFor(ratio)
		if w != want[0] || h != want[1] {
			t.Errorf("Expected %q -> %dx%d, got %dx%d", ratio, want[0], want[1], w, h)
		}
	}
}

func TestGenerateImageSendsCanvasAndPrompt(t *testing.T) {
	client := &fakeClient{content: &ContentResult{Blobs: []Part{BytesPart([]byte("png-bytes"), "image/png")}}}
	gen := NewImageGenerator(client, "image-model")

	out, err := gen.Generate(context.Background(), "red shoes", "4:3", "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if string(out) != "png-bytes" {
		t.Errorf("Expected model bytes, got %q", out)
	}
	if client.lastModel != "image-model" {
		t.Errorf("Expected default model, got %s", client.lastModel)
	}
	if len(client.lastParts) != 2 {
		t.Fatalf("Expected canvas and prompt parts, got %d", len(client.lastParts))
	}
	if client.lastParts[1].Text != "red shoes" {
		t.Errorf("Expected prompt part, got %q", client.lastParts[1].Text)
	}

	img, err := imaging.Decode(bytes.NewReader(client.lastParts[0].Data))
	if err != nil {
		t.Fatalf("Canvas is not a decodable image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1024 || b.Dy() != 768 {
		t.Errorf("Expected 1024x768 canvas, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestGenerateImageExplicitModel(t *testing.T) {
	client := &fakeClient{content: &ContentResult{Blobs: []Part{BytesPart([]byte("x"), "image/png")}}}
	gen := NewImageGenerator(client, "image-model")
	if _, err := gen.Generate(context.Background(), "hat", "1:1", "other-model"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if client.lastModel != "other-model" {
		t.Errorf("Expected other-model, got %s", client.lastModel)
	}
}

func TestGenerateImageEmptyResult(t *testing.T) {
	client := &fakeClient{content: &ContentResult{Text: "I can't draw that"}}
	gen := NewImageGenerator(client, "image-model")
	_, err := gen.Generate(context.Background(), "red shoes", "1:1", "")
	if !errors.Is(err, ErrGenerationEmpty) {
		t.Errorf("Expected ErrGenerationEmpty, got %v", err)
	}
}

func TestGenerateImageRejectsEmptyPrompt(t *testing.T) {
	client := &fakeClient{}
	gen := NewImageGenerator(client, "image-model")
	_, err := gen.Generate(context.Background(), "  ", "1:1", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if client.contentCalls != 0 {
		t.Errorf("Expected no model call, got %d", client.contentCalls)
	}
}

func TestRewriteEditPrompt(t *testing.T) {
	cases := map[string]string{
		"a sunny beach":              "Change the background to a sunny beach",
		"make the Background darker": "make the Background darker",
		"BACKGROUND: snow":           "BACKGROUND: snow",
		"add a hat":                  "Change the background to add a hat",
	}
	for in, want := range cases {
		if got := RewriteEditPrompt(in); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}

func TestEditImageRewritesPrompt(t *testing.T) {
	client := &fakeClient{content: &ContentResult{Blobs: []Part{BytesPart([]byte("edited"), "image/png")}}}
	editor := NewImageEditor(client, "edit-model")

	out, err := editor.Edit(context.Background(), []byte("src"), "image/jpeg", "a city street", "")
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if string(out) != "edited" {
		t.Errorf("Expected edited bytes, got %q", out)
	}
	if client.lastParts[0].MIMEType != "image/jpeg" {
		t.Errorf("Expected source MIME type to pass through, got %s", client.lastParts[0].MIMEType)
	}
	if client.lastParts[1].Text != "Change the background to a city street" {
		t.Errorf("Expected rewritten prompt, got %q", client.lastParts[1].Text)
	}
}

func TestEditImageEmptyResult(t *testing.T) {
	editor := NewImageEditor(&fakeClient{content: &ContentResult{}}, "edit-model")
	_, err := editor.Edit(context.Background(), []byte("src"), "", "background blue", "")
	if !errors.Is(err, ErrGenerationEmpty) {
		t.Errorf("Expected ErrGenerationEmpty, got %v", err)
	}
}

func TestTryOn(t *testing.T) {
	client := &fakeClient{recontext: []byte("jpeg")}
	gen := NewTryOnGenerator(client, "vto-model")
	out, err := gen.TryOn(context.Background(), []byte("person"), []byte("garment"), "tops")
	if err != nil {
		t.Fatalf("TryOn failed: %v", err)
	}
	if string(out) != "jpeg" || client.lastModel != "vto-model" {
		t.Errorf("Unexpected result %q from model %s", out, client.lastModel)
	}

	_, err = NewTryOnGenerator(&fakeClient{}, "vto-model").TryOn(context.Background(), []byte("p"), []byte("g"), "")
	if !errors.Is(err, ErrGenerationEmpty) {
		t.Errorf("Expected ErrGenerationEmpty, got %v", err)
	}

	_, err = gen.TryOn(context.Background(), nil, []byte("g"), "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestGenerateTextPassesOptions(t *testing.T) {
	client := &fakeClient{content: &ContentResult{Text: "  verbatim text\n"}}
	gen := NewTextGenerator(client, "text-model")

	opts := DefaultTextOptions()
	opts.SystemInstruction = "be brief"
	out, err := gen.Generate(context.Background(), "describe a coat", opts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "  verbatim text\n" {
		t.Errorf("Expected verbatim text, got %q", out)
	}
	cfg := client.lastConfig
	if *cfg.Temperature != 1.0 || *cfg.TopP != 0.95 || *cfg.TopK != 40 {
		t.Errorf("Unexpected sampling config: %v %v %v", *cfg.Temperature, *cfg.TopP, *cfg.TopK)
	}
	if cfg.MaxOutputTokens != 8192 || cfg.ResponseMIMEType != "text/plain" {
		t.Errorf("Unexpected output config: %d %s", cfg.MaxOutputTokens, cfg.ResponseMIMEType)
	}
	if cfg.SystemInstruction != "be brief" {
		t.Errorf("Expected system instruction, got %q", cfg.SystemInstruction)
	}
	if client.lastModel != "text-model" {
		t.Errorf("Expected text-model, got %s", client.lastModel)
	}
}

func TestNewVideoJobDefaults(t *testing.T) {
	job := NewVideoJob("runway walk", nil, "", 0, "", true)
	if job.DurationSeconds != 6 || job.AspectRatio != "16:9" || !job.GenerateAudio {
		t.Errorf("Unexpected defaults: %+v", job)
	}
	if job.Status != model.JobStatusSubmitted {
		t.Errorf("Expected submitted, got %s", job.Status)
	}
}

func TestVideoPollerChecksNPlusOneTimes(t *testing.T) {
	const n = 4
	seq := make([]VideoOperation, 0, n+1)
	for i := 0; i < n; i++ {
		seq = append(seq, fakeOp{})
	}
	seq = append(seq, fakeOp{done: true, videos: [][]byte{[]byte("mp4")}})
	client := &fakeClient{startOp: fakeOp{}, pollSeq: seq}

	gen := NewVideoGenerator(client, "video-model", PollPolicy{Interval: time.Second})
	gen.sleep = noSleep

	job := NewVideoJob("runway walk", nil, "", 0, "", true)
	out, err := gen.Generate(context.Background(), job)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if string(out) != "mp4" {
		t.Errorf("Expected video bytes, got %q", out)
	}
	if client.pollCalls != n+1 {
		t.Errorf("Expected %d status checks, got %d", n+1, client.pollCalls)
	}
	if job.Attempts != n+1 {
		t.Errorf("Expected %d attempts recorded, got %d", n+1, job.Attempts)
	}
	if job.Status != model.JobStatusDone {
		t.Errorf("Expected done, got %s", job.Status)
	}
	if client.lastVideo.DurationSeconds != 6 || client.lastVideo.AspectRatio != "16:9" || !client.lastVideo.GenerateAudio {
		t.Errorf("Unexpected job config: %+v", client.lastVideo)
	}
}

func TestVideoDoneWithoutVideo(t *testing.T) {
	client := &fakeClient{startOp: fakeOp{}, pollSeq: []VideoOperation{fakeOp{done: true}}}
	gen := NewVideoGenerator(client, "video-model", PollPolicy{})
	gen.sleep = noSleep

	job := NewVideoJob("runway walk", nil, "", 0, "", true)
	_, err := gen.Generate(context.Background(), job)
	if !errors.Is(err, ErrGenerationEmpty) {
		t.Errorf("Expected ErrGenerationEmpty, got %v", err)
	}
	if job.Status != model.JobStatusFailed {
		t.Errorf("Expected failed, got %s", job.Status)
	}
}

func TestVideoOperationError(t *testing.T) {
	boom := errors.New("safety filter")
	client := &fakeClient{startOp: fakeOp{done: true, err: boom}}
	gen := NewVideoGenerator(client, "video-model", PollPolicy{})

	job := NewVideoJob("runway walk", nil, "", 0, "", false)
	_, err := gen.Generate(context.Background(), job)
	if !errors.Is(err, boom) {
		t.Errorf("Expected operation error, got %v", err)
	}
	if client.pollCalls != 0 {
		t.Errorf("Expected no status checks for a finished operation, got %d", client.pollCalls)
	}
}

func TestVideoMaxAttemptsTimesOut(t *testing.T) {
	client := &fakeClient{startOp: fakeOp{}}
	gen := NewVideoGenerator(client, "video-model", PollPolicy{MaxAttempts: 3})
	gen.sleep = noSleep

	job := NewVideoJob("runway walk", nil, "", 0, "", true)
	_, err := gen.Generate(context.Background(), job)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if client.pollCalls != 3 {
		t.Errorf("Expected 3 status checks, got %d", client.pollCalls)
	}
	if job.Status != model.JobStatusTimeout {
		t.Errorf("Expected timeout, got %s", job.Status)
	}
}

func TestVideoMaxWaitTimesOut(t *testing.T) {
	client := &fakeClient{startOp: fakeOp{}}
	gen := NewVideoGenerator(client, "video-model", PollPolicy{Interval: time.Hour, MaxWait: 20 * time.Millisecond})

	job := NewVideoJob("runway walk", nil, "", 0, "", true)
	_, err := gen.Generate(context.Background(), job)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if job.Status != model.JobStatusTimeout {
		t.Errorf("Expected timeout, got %s", job.Status)
	}
}

func TestVideoCallerCancel(t *testing.T) {
	client := &fakeClient{startOp: fakeOp{}}
	gen := NewVideoGenerator(client, "video-model", PollPolicy{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := NewVideoJob("runway walk", nil, "", 0, "", true)
	_, err := gen.Generate(ctx, job)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if job.Status != model.JobStatusFailed {
		t.Errorf("Expected failed, got %s", job.Status)
	}
}

func TestServiceRunsThroughPool(t *testing.T) {
	client := &fakeClient{
		content:   &ContentResult{Text: "hello", Blobs: []Part{BytesPart([]byte("img"), "image/png")}},
		recontext: []byte("vto"),
		startOp:   fakeOp{done: true, videos: [][]byte{[]byte("clip")}},
	}
	models := conf.GenAIConfig{ImageModel: "img", EditModel: "edit", TryOnModel: "vto", VideoModel: "veo", TextModel: "txt"}
	svc := NewService(client, models, conf.VideoConfig{PollInterval: 1, MaxAttempts: 2, MaxWait: 5}, common.NewWorkPool(2))
	ctx := context.Background()

	if out, err := svc.GenerateImage(ctx, "red shoes", "4:3", ""); err != nil || string(out) != "img" {
		t.Errorf("GenerateImage: %q %v", out, err)
	}
	if out, err := svc.EditImage(ctx, []byte("src"), "", "beach", ""); err != nil || string(out) != "img" {
		t.Errorf("EditImage: %q %v", out, err)
	}
	if out, err := svc.TryOn(ctx, []byte("p"), []byte("g"), ""); err != nil || string(out) != "vto" {
		t.Errorf("TryOn: %q %v", out, err)
	}
	if out, err := svc.GenerateVideo(ctx, NewVideoJob("walk", nil, "", 0, "", true)); err != nil || string(out) != "clip" {
		t.Errorf("GenerateVideo: %q %v", out, err)
	}
	if out, err := svc.GenerateText(ctx, "hi", DefaultTextOptions()); err != nil || out != "hello" {
		t.Errorf("GenerateText: %q %v", out, err)
	}
}
