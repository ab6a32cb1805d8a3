package handler

import (
	"fashion-studio/controller/respond"
	"fashion-studio/model"

	"github.com/gin-gonic/gin"
)

// DeadLetterLister lists one user's failed persistence attempts.
type DeadLetterLister interface {
	ListUser(userID string) ([]*model.PersistFailure, error)
}

// AdminHandler operator endpoints
type AdminHandler struct {
	dead    DeadLetterLister
	project string
}

// NewAdminHandler create admin handler instance
func NewAdminHandler(dead DeadLetterLister, project string) *AdminHandler {
	return &AdminHandler{dead: dead, project: project}
}

// Health service liveness
// @Summary      Health check
// @Tags         Utility
// @Produce      json
// @Success      200  {object}  respond.HealthResponse
// @Router       / [get]
func (h *AdminHandler) Health(c *gin.Context) {
	c.JSON(200, respond.HealthResponse{Status: "ok", Project: h.project})
}

// ListDeadLetters list failed persistence attempts
// @Summary      List dead letters
// @Description  The caller's persistence tasks that failed after the response was sent; replay with cmd/reconcile
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  respond.Response{data=respond.DeadLetterListResponse}
// @Failure      500  {object}  respond.Response
// @Router       /admin/dead-letters [get]
func (h *AdminHandler) ListDeadLetters(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	entries, err := h.dead.ListUser(identity.UID)
	if err != nil {
		respond.ServerError(c, err.Error())
		return
	}
	respond.Success(c, respond.ToDeadLetterListResponse(entries))
}
