package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"fashion-studio/controller/middleware"
	"fashion-studio/controller/respond"
	"fashion-studio/model"
	"fashion-studio/service/generation_service"
	"fashion-studio/service/persist_service"
	"fashion-studio/service/storage_service"

	"github.com/gin-gonic/gin"
)

// Generator is the generation surface the handlers call.
type Generator interface {
	GenerateImage(ctx context.Context, prompt, aspectRatio, model string) ([]byte, error)
	EditImage(ctx context.Context, image []byte, mimeType, prompt, model string) ([]byte, error)
	TryOn(ctx context.Context, person, garment []byte, category string) ([]byte, error)
	GenerateVideo(ctx context.Context, job *model.GenerationJob) ([]byte, error)
	GenerateText(ctx context.Context, prompt string, opts generation_service.TextOptions) (string, error)
}

// Scheduler accepts persistence work once a response has been written.
type Scheduler interface {
	Schedule(task persist_service.Task) error
}

// uploadedFile is a multipart file read fully into memory
type uploadedFile struct {
	Data        []byte
	Filename    string
	ContentType string
}

// readFormFile reads a multipart file field. ok is false when the field is absent.
func readFormFile(c *gin.Context, field string) (*uploadedFile, bool, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", field, err)
	}
	f, err := header.Open()
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", field, err)
	}
	return &uploadedFile{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, true, nil
}

// postFormOr returns the trimmed form value, or def when it is absent or blank.
func postFormOr(c *gin.Context, key, def string) string {
	if v := strings.TrimSpace(c.PostForm(key)); v != "" {
		return v
	}
	return def
}

// identityOrAbort returns the caller's identity, answering 401 when Auth did
// not run.
func identityOrAbort(c *gin.Context) (*model.Identity, bool) {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		respond.Unauthorized(c, "Invalid authentication credentials")
		return nil, false
	}
	return identity, true
}

// generationError maps a generation failure to its HTTP answer.
func generationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, generation_service.ErrInvalidInput):
		respond.InvalidParam(c, err.Error())
	case errors.Is(err, generation_service.ErrTimeout):
		respond.GatewayTimeout(c, err.Error())
	default:
		respond.ServerError(c, err.Error())
	}
}

// ledgerError maps a ledger failure to its HTTP answer.
func ledgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage_service.ErrNotFound):
		respond.NotFound(c, "asset not found")
	case errors.Is(err, storage_service.ErrInvalidAsset), errors.Is(err, storage_service.ErrDuplicate):
		respond.InvalidParam(c, err.Error())
	default:
		respond.ServerError(c, err.Error())
	}
}
