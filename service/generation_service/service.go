package generation_service

import (
	"context"
	"time"

	"fashion-studio/common"
	"fashion-studio/conf"
	"fashion-studio/model"
)

// Service runs every adapter through one bounded work pool. A video job
// holds its slot for its whole polling lifetime.
type Service struct {
	images *ImageGenerator
	editor *ImageEditor
	tryOn  *TryOnGenerator
	video  *VideoGenerator
	text   *TextGenerator
	pool   *common.WorkPool
}

func NewService(client ModelClient, models conf.GenAIConfig, video conf.VideoConfig, pool *common.WorkPool) *Service {
	return &Service{
		images: NewImageGenerator(client, models.ImageModel),
		editor: NewImageEditor(client, models.EditModel),
		tryOn:  NewTryOnGenerator(client, models.TryOnModel),
		video: NewVideoGenerator(client, models.VideoModel, PollPolicy{
			Interval:    time.Duration(video.PollInterval) * time.Second,
			MaxAttempts: video.MaxAttempts,
			MaxWait:     time.Duration(video.MaxWait) * time.Second,
		}),
		text: NewTextGenerator(client, models.TextModel),
		pool: pool,
	}
}

func (s *Service) GenerateImage(ctx context.Context, prompt, aspectRatio, model string) ([]byte, error) {
	return common.Run(ctx, s.pool, func(ctx context.Context) ([]byte, error) {
		return s.images.Generate(ctx, prompt, aspectRatio, model)
	})
}

func (s *Service) EditImage(ctx context.Context, image []byte, mimeType, prompt, model string) ([]byte, error) {
	return common.Run(ctx, s.pool, func(ctx context.Context) ([]byte, error) {
		return s.editor.Edit(ctx, image, mimeType, prompt, model)
	})
}

func (s *Service) TryOn(ctx context.Context, person, garment []byte, category string) ([]byte, error) {
	return common.Run(ctx, s.pool, func(ctx context.Context) ([]byte, error) {
		return s.tryOn.TryOn(ctx, person, garment, category)
	})
}

func (s *Service) GenerateVideo(ctx context.Context, job *model.GenerationJob) ([]byte, error) {
	return common.Run(ctx, s.pool, func(ctx context.Context) ([]byte, error) {
		return s.video.Generate(ctx, job)
	})
}

func (s *Service) GenerateText(ctx context.Context, prompt string, opts TextOptions) (string, error) {
	return common.Run(ctx, s.pool, func(ctx context.Context) (string, error) {
		return s.text.Generate(ctx, prompt, opts)
	})
}
