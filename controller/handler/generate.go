package handler

import (
	"net/http"
	"strconv"
	"strings"

	"fashion-studio/common/logger"
	"fashion-studio/conf"
	"fashion-studio/controller/respond"
	"fashion-studio/model"
	"fashion-studio/service/generation_service"
	"fashion-studio/service/persist_service"

	"github.com/gin-gonic/gin"
)

// GenerateHandler serves the generation endpoints. Each writes the media
// first and only then hands the result to the persistence orchestrator.
type GenerateHandler struct {
	gen     Generator
	persist Scheduler
	models  conf.GenAIConfig
	log     *logger.Logger
}

// NewGenerateHandler create generate handler instance
func NewGenerateHandler(gen Generator, persist Scheduler, models conf.GenAIConfig, log *logger.Logger) *GenerateHandler {
	return &GenerateHandler{gen: gen, persist: persist, models: models, log: log}
}

// schedule queues persistence; a refused task is already dead-lettered.
func (h *GenerateHandler) schedule(task persist_service.Task) {
	if err := h.persist.Schedule(task); err != nil {
		h.log.Warn("Persist task not queued", "user_id", task.UserID, "key", task.Key, "error", err)
	}
}

// GenerateImage generate an image from a prompt
// @Summary      Generate image
// @Tags         Generation
// @Accept       multipart/form-data
// @Produce      png
// @Security     BearerAuth
// @Param        prompt        formData  string  true   "Prompt"
// @Param        aspect_ratio  formData  string  false  "Aspect ratio"  default(3:4)
// @Param        model         formData  string  false  "Model name"
// @Success      200           {file}    binary
// @Failure      400           {object}  respond.Response
// @Failure      500           {object}  respond.Response
// @Router       /generate-image [post]
func (h *GenerateHandler) GenerateImage(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	prompt := c.PostForm("prompt")
	if strings.TrimSpace(prompt) == "" {
		respond.InvalidParam(c, "prompt is required")
		return
	}
	aspectRatio := c.DefaultPostForm("aspect_ratio", "3:4")
	modelName := postFormOr(c, "model", h.models.ImageModel)

	out, err := h.gen.GenerateImage(c.Request.Context(), prompt, aspectRatio, modelName)
	if err != nil {
		h.log.Error("Image generation failed", "user_id", identity.UID, "error", err)
		generationError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", out)
	h.schedule(persist_service.NewTask(identity.UID, out, "", "image/png", model.Asset{
		Type:     model.AssetTypeGeneratedImage,
		Category: model.CategoryUserGeneratedData,
		Prompt:   prompt,
		Source:   model.SourceTextToImage,
		Model:    modelName,
	}))
}

// EditImage edit an image with a prompt
// @Summary      Edit image
// @Tags         Generation
// @Accept       multipart/form-data
// @Produce      png
// @Security     BearerAuth
// @Param        image   formData  file    true   "Source image"
// @Param        prompt  formData  string  true   "Edit instruction"
// @Param        model   formData  string  false  "Model name"
// @Success      200     {file}    binary
// @Failure      400     {object}  respond.Response
// @Failure      500     {object}  respond.Response
// @Router       /edit-image [post]
func (h *GenerateHandler) EditImage(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	image, present, err := readFormFile(c, "image")
	if err != nil || !present {
		respond.InvalidParam(c, "image is required")
		return
	}
	prompt := c.PostForm("prompt")
	if strings.TrimSpace(prompt) == "" {
		respond.InvalidParam(c, "prompt is required")
		return
	}
	modelName := postFormOr(c, "model", h.models.EditModel)

	out, err := h.gen.EditImage(c.Request.Context(), image.Data, image.ContentType, prompt, modelName)
	if err != nil {
		h.log.Error("Image edit failed", "user_id", identity.UID, "error", err)
		generationError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", out)
	h.schedule(persist_service.NewTask(identity.UID, out, "", "image/png", model.Asset{
		Type:           model.AssetTypeEditedImage,
		Category:       model.CategoryUserGeneratedData,
		Prompt:         prompt,
		Source:         model.SourceEditImageOutput,
		Model:          modelName,
		ParentFilename: image.Filename,
	}))
}

// TryOn dress a person in a garment
// @Summary      Virtual try-on
// @Tags         Generation
// @Accept       multipart/form-data
// @Produce      jpeg
// @Security     BearerAuth
// @Param        person_image   formData  file    true   "Person image"
// @Param        garment_image  formData  file    true   "Garment image"
// @Param        category       formData  string  false  "Garment category"  default(tops)
// @Success      200            {file}    binary
// @Failure      400            {object}  respond.Response
// @Failure      500            {object}  respond.Response
// @Router       /try-on [post]
func (h *GenerateHandler) TryOn(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	person, present, err := readFormFile(c, "person_image")
	if err != nil || !present {
		respond.InvalidParam(c, "person_image is required")
		return
	}
	garment, present, err := readFormFile(c, "garment_image")
	if err != nil || !present {
		respond.InvalidParam(c, "garment_image is required")
		return
	}
	category := c.DefaultPostForm("category", "tops")

	out, err := h.gen.TryOn(c.Request.Context(), person.Data, garment.Data, category)
	if err != nil {
		h.log.Error("Try-on failed", "user_id", identity.UID, "error", err)
		generationError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/jpeg", out)
	h.schedule(persist_service.NewTask(identity.UID, out, "tryon.jpg", "image/jpeg", model.Asset{
		Type:            model.AssetTypeTryOnResult,
		Category:        model.CategoryUserGeneratedData,
		Source:          model.SourceTryOnOutput,
		Model:           h.models.TryOnModel,
		PersonFilename:  person.Filename,
		GarmentFilename: garment.Filename,
	}))
}

// GenerateVideo generate a video from a prompt and optional seed image
// @Summary      Generate video
// @Description  Blocks until the video job finishes, fails or times out
// @Tags         Generation
// @Accept       multipart/form-data
// @Produce      mp4
// @Security     BearerAuth
// @Param        prompt            formData  string  true   "Prompt"
// @Param        image             formData  file    false  "Seed image"
// @Param        duration_seconds  formData  int     false  "Duration"      default(6)
// @Param        aspect_ratio      formData  string  false  "Aspect ratio"  default(16:9)
// @Param        generate_audio    formData  bool    false  "Audio"         default(true)
// @Success      200               {file}    binary
// @Failure      400               {object}  respond.Response
// @Failure      500               {object}  respond.Response
// @Failure      504               {object}  respond.Response
// @Router       /generate-video [post]
func (h *GenerateHandler) GenerateVideo(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	prompt := c.PostForm("prompt")
	if strings.TrimSpace(prompt) == "" {
		respond.InvalidParam(c, "prompt is required")
		return
	}
	image, hasImage, err := readFormFile(c, "image")
	if err != nil {
		respond.InvalidParam(c, err.Error())
		return
	}
	duration, err := strconv.Atoi(c.DefaultPostForm("duration_seconds", strconv.Itoa(generation_service.DefaultVideoDuration)))
	if err != nil {
		respond.InvalidParam(c, "duration_seconds must be an integer")
		return
	}
	audio, err := strconv.ParseBool(c.DefaultPostForm("generate_audio", "true"))
	if err != nil {
		respond.InvalidParam(c, "generate_audio must be a boolean")
		return
	}

	var seed []byte
	var seedType, seedName string
	if hasImage && len(image.Data) > 0 {
		seed, seedType, seedName = image.Data, image.ContentType, image.Filename
	}
	job := generation_service.NewVideoJob(prompt, seed, seedType, duration,
		c.DefaultPostForm("aspect_ratio", generation_service.DefaultVideoAspectRatio), audio)

	out, err := h.gen.GenerateVideo(c.Request.Context(), job)
	if err != nil {
		h.log.Error("Video generation failed", "user_id", identity.UID, "status", job.Status, "attempts", job.Attempts, "error", err)
		generationError(c, err)
		return
	}

	c.Data(http.StatusOK, "video/mp4", out)
	source := model.SourceTextToVideo
	if len(job.Image) > 0 {
		source = model.SourceImageToVideo
	}
	h.schedule(persist_service.NewTask(identity.UID, out, "", "video/mp4", model.Asset{
		Type:               model.AssetTypeGeneratedVideo,
		Category:           model.CategoryUserGeneratedData,
		Prompt:             prompt,
		Source:             source,
		Model:              h.models.VideoModel,
		InputImageFilename: seedName,
	}))
}

// GenerateText generate text from a prompt
// @Summary      Generate text
// @Tags         Generation
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        prompt              formData  string  true   "Prompt"
// @Param        model               formData  string  false  "Model name"
// @Param        temperature         formData  number  false  "Temperature"         default(1.0)
// @Param        top_p               formData  number  false  "Top-p"               default(0.95)
// @Param        top_k               formData  int     false  "Top-k"               default(40)
// @Param        max_output_tokens   formData  int     false  "Max output tokens"   default(8192)
// @Param        response_mime_type  formData  string  false  "Response MIME type"  default(text/plain)
// @Param        system_instruction  formData  string  false  "System instruction"
// @Success      200                 {object}  respond.Response{data=respond.TextResponse}
// @Failure      400                 {object}  respond.Response
// @Failure      500                 {object}  respond.Response
// @Router       /generate-text [post]
func (h *GenerateHandler) GenerateText(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	prompt := c.PostForm("prompt")
	if strings.TrimSpace(prompt) == "" {
		respond.InvalidParam(c, "prompt is required")
		return
	}

	opts := generation_service.DefaultTextOptions()
	opts.Model = c.PostForm("model")
	opts.SystemInstruction = c.PostForm("system_instruction")
	if v := c.PostForm("response_mime_type"); v != "" {
		opts.ResponseMIMEType = v
	}
	var err error
	if opts.Temperature, err = formFloat(c, "temperature", opts.Temperature); err != nil {
		respond.InvalidParam(c, err.Error())
		return
	}
	if opts.TopP, err = formFloat(c, "top_p", opts.TopP); err != nil {
		respond.InvalidParam(c, err.Error())
		return
	}
	if opts.TopK, err = formInt(c, "top_k", opts.TopK); err != nil {
		respond.InvalidParam(c, err.Error())
		return
	}
	if opts.MaxOutputTokens, err = formInt(c, "max_output_tokens", opts.MaxOutputTokens); err != nil {
		respond.InvalidParam(c, err.Error())
		return
	}

	text, err := h.gen.GenerateText(c.Request.Context(), prompt, opts)
	if err != nil {
		h.log.Error("Text generation failed", "user_id", identity.UID, "error", err)
		generationError(c, err)
		return
	}
	respond.Success(c, respond.TextResponse{Text: text})
}

func formFloat(c *gin.Context, field string, def float32) (float32, error) {
	v := c.PostForm(field)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, invalidField(field)
	}
	return float32(f), nil
}

func formInt(c *gin.Context, field string, def int) (int, error) {
	v := c.PostForm(field)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalidField(field)
	}
	return n, nil
}

type invalidField string

func (f invalidField) Error() string {
	return string(f) + " is not a valid number"
}
