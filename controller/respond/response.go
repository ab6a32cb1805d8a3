package respond

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const startTimeKey = "requestStartTime"

// Response unified JSON envelope
type Response struct {
	Code           int         `json:"code" example:"0"`
	Message        string      `json:"message" example:"success"`
	Data           interface{} `json:"data,omitempty"`
	ProcessingTime int64       `json:"processingTime" example:"12"` // milliseconds
}

// Business codes carried in Response.Code
const (
	CodeSuccess        = 0
	CodeInvalidParam   = 40000
	CodeUnauthorized   = 40100
	CodeNotFound       = 40400
	CodeServerError    = 50000
	CodeGatewayTimeout = 50400
)

// TimingMiddleware records the request start time for processingTime
func TimingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(startTimeKey, time.Now())
		c.Next()
	}
}

func elapsed(c *gin.Context) int64 {
	if v, ok := c.Get(startTimeKey); ok {
		if start, ok := v.(time.Time); ok {
			return time.Since(start).Milliseconds()
		}
	}
	return 0
}

func write(c *gin.Context, status, code int, message string, data interface{}) {
	c.JSON(status, Response{
		Code:           code,
		Message:        message,
		Data:           data,
		ProcessingTime: elapsed(c),
	})
}

// Success 200 with data
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, CodeSuccess, "success", data)
}

func InvalidParam(c *gin.Context, message string) {
	write(c, http.StatusBadRequest, CodeInvalidParam, message, nil)
}

func Unauthorized(c *gin.Context, message string) {
	write(c, http.StatusUnauthorized, CodeUnauthorized, message, nil)
	c.Abort()
}

func NotFound(c *gin.Context, message string) {
	write(c, http.StatusNotFound, CodeNotFound, message, nil)
}

func ServerError(c *gin.Context, message string) {
	write(c, http.StatusInternalServerError, CodeServerError, message, nil)
}

func GatewayTimeout(c *gin.Context, message string) {
	write(c, http.StatusGatewayTimeout, CodeGatewayTimeout, message, nil)
}
