package handler

import (
	"path"
	"strconv"
	"strings"

	"fashion-studio/common/logger"
	"fashion-studio/controller/respond"
	"fashion-studio/model"
	"fashion-studio/service/storage_service"
	"fashion-studio/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AssetHandler serves the caller's asset ledger
type AssetHandler struct {
	backend storage_service.Backend
	log     *logger.Logger
}

// NewAssetHandler create asset handler instance
func NewAssetHandler(backend storage_service.Backend, log *logger.Logger) *AssetHandler {
	return &AssetHandler{backend: backend, log: log}
}

// CreateAssetRequest create a record for an already stored file
type CreateAssetRequest struct {
	URL      string `json:"url" binding:"required" example:"https://cdn.example.com/u1/look.png"`
	Type     string `json:"type" binding:"required" example:"user-data"`
	Category string `json:"category" example:"user-data"`
}

// UpdateAssetRequest tags replace the existing ones
type UpdateAssetRequest struct {
	Tags []string `json:"tags" example:"summer,red"`
}

// ListAssets list the caller's assets
// @Summary      List assets
// @Description  Newest first, optionally filtered by type and capped by limit
// @Tags         Assets
// @Produce      json
// @Security     BearerAuth
// @Param        type   query     string  false  "Asset type"
// @Param        limit  query     int     false  "Maximum number of assets"
// @Success      200    {object}  respond.Response{data=respond.AssetListResponse}
// @Failure      400    {object}  respond.Response
// @Failure      401    {object}  respond.Response
// @Router       /assets [get]
func (h *AssetHandler) ListAssets(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}

	query := model.AssetQuery{Type: model.AssetType(strings.TrimSpace(c.Query("type")))}
	if query.Type != "" && !query.Type.Valid() {
		respond.InvalidParam(c, "unknown asset type")
		return
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			respond.InvalidParam(c, "limit must be a non-negative integer")
			return
		}
		query.Limit = limit
	}

	assets, err := h.backend.GetAssetRecords(c.Request.Context(), identity.UID, query)
	if err != nil {
		h.log.Error("List assets failed", "user_id", identity.UID, "error", err)
		respond.ServerError(c, err.Error())
		return
	}
	respond.Success(c, respond.ToAssetListResponse(assets))
}

// CreateAsset create a record from an existing URL
// @Summary      Create asset
// @Tags         Assets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CreateAssetRequest  true  "Asset"
// @Success      200      {object}  respond.Response{data=respond.AssetCreatedResponse}
// @Failure      400      {object}  respond.Response
// @Router       /assets [post]
func (h *AssetHandler) CreateAsset(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.InvalidParam(c, err.Error())
		return
	}

	asset := &model.Asset{
		URL:      req.URL,
		Type:     model.AssetType(req.Type),
		Category: model.AssetCategory(req.Category),
	}
	id, err := h.backend.SaveAssetRecord(c.Request.Context(), identity.UID, asset)
	if err != nil {
		h.log.Error("Create asset failed", "user_id", identity.UID, "error", err)
		ledgerError(c, err)
		return
	}
	respond.Success(c, respond.AssetCreatedResponse{ID: id, URL: asset.URL})
}

// UpdateAsset replace an asset's tags
// @Summary      Update asset tags
// @Tags         Assets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true  "Asset ID"
// @Param        request  body      UpdateAssetRequest  true  "Tags"
// @Success      200      {object}  respond.Response
// @Failure      404      {object}  respond.Response
// @Router       /assets/{id} [put]
func (h *AssetHandler) UpdateAsset(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	var req UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.InvalidParam(c, err.Error())
		return
	}

	err := h.backend.UpdateAssetRecord(c.Request.Context(), identity.UID, c.Param("id"), model.AssetUpdate{Tags: req.Tags})
	if err != nil {
		ledgerError(c, err)
		return
	}
	respond.Success(c, gin.H{"status": "success"})
}

// DeleteAsset delete an asset record
// @Summary      Delete asset
// @Tags         Assets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Asset ID"
// @Success      200  {object}  respond.Response
// @Failure      404  {object}  respond.Response
// @Router       /assets/{id} [delete]
func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	if err := h.backend.DeleteAssetRecord(c.Request.Context(), identity.UID, c.Param("id")); err != nil {
		ledgerError(c, err)
		return
	}
	respond.Success(c, gin.H{"status": "success"})
}

// UploadAsset upload a file and record it
// @Summary      Upload asset
// @Description  Stores the file under the caller's prefix and records it as user data
// @Tags         Assets
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file    true  "File to upload"
// @Param        type  formData  string  true  "Asset type"
// @Success      200   {object}  respond.Response{data=respond.AssetCreatedResponse}
// @Failure      400   {object}  respond.Response
// @Failure      500   {object}  respond.Response
// @Router       /assets/upload [post]
func (h *AssetHandler) UploadAsset(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	file, present, err := readFormFile(c, "file")
	if err != nil || !present {
		respond.InvalidParam(c, "file is required")
		return
	}
	assetType := model.AssetType(c.PostForm("type"))
	if !assetType.Valid() {
		respond.InvalidParam(c, "unknown asset type")
		return
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	key := path.Join(identity.UID, uuid.NewString()+"."+storage.ExtensionFor(file.Filename, file.ContentType))

	ctx := c.Request.Context()
	url, err := h.backend.UploadFile(ctx, file.Data, key, contentType)
	if err != nil {
		h.log.Error("Upload failed", "user_id", identity.UID, "key", key, "error", err)
		respond.ServerError(c, err.Error())
		return
	}
	asset := &model.Asset{URL: url, Type: assetType, Category: model.CategoryUserData}
	id, err := h.backend.SaveAssetRecord(ctx, identity.UID, asset)
	if err != nil {
		h.log.Error("Record upload failed", "user_id", identity.UID, "key", key, "error", err)
		ledgerError(c, err)
		return
	}
	respond.Success(c, respond.AssetCreatedResponse{ID: id, URL: url})
}
