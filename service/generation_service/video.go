package generation_service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fashion-studio/model"
)

// PollPolicy bounds a video job. Zero MaxAttempts or MaxWait means no bound
// of that kind; the caller's context always applies.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	MaxWait     time.Duration
}

// Video defaults applied when a request leaves them out.
const (
	DefaultVideoDuration    = 6
	DefaultVideoAspectRatio = "16:9"
	DefaultVideoResolution  = "1080p"
)

// VideoGenerator submits a video job and polls it to completion.
type VideoGenerator struct {
	client ModelClient
	model  string
	policy PollPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewVideoGenerator(client ModelClient, model string, policy PollPolicy) *VideoGenerator {
	return &VideoGenerator{client: client, model: model, policy: policy, sleep: sleepCtx}
}

// NewVideoJob fills the defaults for an incoming request.
func NewVideoJob(prompt string, image []byte, imageMIMEType string, durationSeconds int, aspectRatio string, generateAudio bool) *model.GenerationJob {
	if durationSeconds <= 0 {
		durationSeconds = DefaultVideoDuration
	}
	if strings.TrimSpace(aspectRatio) == "" {
		aspectRatio = DefaultVideoAspectRatio
	}
	if len(image) > 0 && imageMIMEType == "" {
		imageMIMEType = "image/png"
	}
	return &model.GenerationJob{
		Prompt:          prompt,
		Image:           image,
		ImageMIMEType:   imageMIMEType,
		DurationSeconds: durationSeconds,
		AspectRatio:     aspectRatio,
		GenerateAudio:   generateAudio,
		Status:          model.JobStatusSubmitted,
	}
}

// Generate drives job through submitted, polling, then done, failed or
// timeout, and returns the first clip. job.Attempts counts status checks.
func (g *VideoGenerator) Generate(ctx context.Context, job *model.GenerationJob) ([]byte, error) {
	if strings.TrimSpace(job.Prompt) == "" {
		job.Status = model.JobStatusFailed
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	if g.policy.MaxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.policy.MaxWait)
		defer cancel()
	}

	op, err := g.client.StartVideo(ctx, g.model, VideoRequest{
		Prompt:          job.Prompt,
		Image:           job.Image,
		ImageMIMEType:   job.ImageMIMEType,
		AspectRatio:     job.AspectRatio,
		Resolution:      DefaultVideoResolution,
		DurationSeconds: int32(job.DurationSeconds),
		GenerateAudio:   job.GenerateAudio,
	})
	if err != nil {
		job.Status = model.JobStatusFailed
		return nil, g.ctxError(ctx, fmt.Errorf("start video: %w", err))
	}
	job.Status = model.JobStatusPolling

	for !op.Done() {
		if g.policy.MaxAttempts > 0 && job.Attempts >= g.policy.MaxAttempts {
			job.Status = model.JobStatusTimeout
			return nil, fmt.Errorf("%w: still running after %d checks", ErrTimeout, job.Attempts)
		}
		if err := g.sleep(ctx, g.policy.Interval); err != nil {
			err = g.ctxError(ctx, err)
			job.Status = model.JobStatusFailed
			if errors.Is(err, ErrTimeout) {
				job.Status = model.JobStatusTimeout
			}
			return nil, err
		}
		job.Attempts++
		op, err = g.client.PollVideo(ctx, op)
		if err != nil {
			job.Status = model.JobStatusFailed
			return nil, g.ctxError(ctx, fmt.Errorf("poll video: %w", err))
		}
	}

	if err := op.Err(); err != nil {
		job.Status = model.JobStatusFailed
		return nil, fmt.Errorf("video job failed: %w", err)
	}
	for _, v := range op.Videos() {
		if len(v) > 0 {
			job.Status = model.JobStatusDone
			return v, nil
		}
	}
	job.Status = model.JobStatusFailed
	return nil, ErrGenerationEmpty
}

// ctxError turns a deadline into ErrTimeout and keeps other errors as is.
func (g *VideoGenerator) ctxError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
