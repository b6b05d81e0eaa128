package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/shop-admin/internal/core/domain"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeOK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

// writeError maps domain errors onto HTTP statuses. Anything unrecognized is
// logged and reported as an internal error without details.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	resp := Response{Success: false}
	status := http.StatusInternalServerError

	var verr *domain.ValidationError
	var aerr *domain.AuthError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		resp.Message = "validation failed"
		resp.Errors = verr.Fields
	case errors.As(err, &aerr):
		status = http.StatusUnauthorized
		resp.Message = aerr.Reason
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		resp.Message = "not found"
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
		resp.Message = "the record was changed by someone else, reload and try again"
	case errors.Is(err, errBodyTooLarge):
		status = http.StatusRequestEntityTooLarge
		resp.Message = err.Error()
	case errors.Is(err, domain.ErrUpload):
		status = http.StatusBadGateway
		resp.Message = "image upload failed"
	default:
		resp.Message = "internal error"
		logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}

	c.AbortWithStatusJSON(status, resp)
}

func badRequest(field, message string) error {
	return domain.NewValidationError(field, message)
}

var (
	errNoUploader   = errors.New("no image uploader configured")
	errBodyTooLarge = errors.New("request body too large")
)
