package handler

import (
	"net/http"
	"net/url"

	"fashion-studio/common/logger"
	"fashion-studio/controller/respond"

	"github.com/gin-gonic/gin"
	"github.com/imroc/req"
)

// ProxyHandler relays remote images so the browser can draw them on a canvas
// without CORS trouble.
type ProxyHandler struct {
	log *logger.Logger
}

// NewProxyHandler create proxy handler instance
func NewProxyHandler(log *logger.Logger) *ProxyHandler {
	return &ProxyHandler{log: log}
}

// ProxyImage fetch a remote image
// @Summary      Proxy image
// @Tags         Utility
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        url  query     string  true  "http(s) image URL"
// @Success      200  {file}    binary
// @Failure      400  {object}  respond.Response
// @Failure      502  {object}  respond.Response
// @Router       /proxy-image [get]
func (h *ProxyHandler) ProxyImage(c *gin.Context) {
	raw := c.Query("url")
	u, err := url.Parse(raw)
	if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		respond.InvalidParam(c, "url must be an absolute http(s) URL")
		return
	}

	resp, err := req.Get(u.String(), c.Request.Context())
	if err != nil {
		h.log.Warn("Proxy fetch failed", "url", u.String(), "error", err)
		c.JSON(http.StatusBadGateway, respond.Response{Code: respond.CodeServerError, Message: err.Error()})
		return
	}
	body, err := resp.ToBytes()
	if err != nil {
		c.JSON(http.StatusBadGateway, respond.Response{Code: respond.CodeServerError, Message: err.Error()})
		return
	}
	contentType := resp.Response().Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	c.Data(resp.Response().StatusCode, contentType, body)
}
