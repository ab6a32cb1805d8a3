package middleware

import (
	"context"
	"strings"

	"fashion-studio/common/logger"
	"fashion-studio/controller/respond"
	"fashion-studio/model"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// TokenVerifier resolves a bearer token to the caller's identity.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*model.Identity, error)
}

// Auth rejects requests without a valid bearer token and stores the caller's
// identity in the context for handlers.
func Auth(verifier TokenVerifier, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.Header("WWW-Authenticate", "Bearer")
			respond.Unauthorized(c, "Invalid authentication credentials")
			return
		}

		identity, err := verifier.VerifyToken(c.Request.Context(), strings.TrimSpace(token))
		if err != nil || identity == nil || identity.UID == "" {
			log.Warn("Token verification failed", "path", c.FullPath(), "error", err)
			c.Header("WWW-Authenticate", "Bearer")
			respond.Unauthorized(c, "Authentication failed")
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// CurrentIdentity returns the identity set by Auth, or nil.
func CurrentIdentity(c *gin.Context) *model.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*model.Identity)
	return identity
}
