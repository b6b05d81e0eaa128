package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/shop-admin/internal/core/domain"
)

const (
	ctxIdentity  = "identity"
	ctxSessionID = "session_id"
)

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

func bearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireAuth resolves the bearer token to a signed-in identity. SSE clients
// that cannot set headers may pass the token as ?access_token=.
func (h *HTTPHandler) requireAuth(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("access_token")
	}
	if token == "" {
		writeError(c, h.logger, &domain.AuthError{Reason: "missing bearer token"})
		return
	}

	identity, sessionID, err := h.identity.Authenticate(c.Request.Context(), token)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.Set(ctxIdentity, identity)
	c.Set(ctxSessionID, sessionID)
	c.Next()
}

func currentIdentity(c *gin.Context) (*domain.Identity, string) {
	identity, _ := c.Get(ctxIdentity)
	id, _ := identity.(*domain.Identity)
	return id, c.GetString(ctxSessionID)
}

// limitBody caps the request body at n bytes. A declared length over the cap
// is rejected up front; otherwise reads past it fail with *http.MaxBytesError.
func (h *HTTPHandler) limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			writeError(c, h.logger, fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, n))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// bodyError reports an oversized body as errBodyTooLarge and anything else as
// fallback.
func bodyError(err, fallback error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit)
	}
	return fallback
}
