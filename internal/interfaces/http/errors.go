package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NathIMN/Lumiere-sub005/internal/domain/apperr"
)

// Error codes returned in the envelope
const (
	CodeBadRequest             = "bad_request"
	CodePermissionDenied       = "permission_denied"
	CodeNotFound               = "not_found"
	CodeInvalidTransition      = "invalid_transition"
	CodeConcurrentModification = "concurrent_modification"
	CodeValidation             = "validation_failed"
	CodeUnavailable            = "dependency_unavailable"
	CodeInternal               = "internal_error"
)

// Response is the envelope of every JSON response
type Response struct {
	Success bool                `json:"success"`
	Data    interface{}         `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
	Code    string              `json:"code,omitempty"`
	Fields  []apperr.FieldError `json:"fields,omitempty"`
}

// statusFor maps an error to its HTTP status and envelope code
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable, CodeUnavailable
	case errors.Is(err, apperr.ErrPermission):
		return http.StatusForbidden, CodePermissionDenied
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, apperr.ErrConcurrentModification):
		return http.StatusConflict, CodeConcurrentModification
	case errors.Is(err, apperr.ErrInvalidTransition):
		return http.StatusConflict, CodeInvalidTransition
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusUnprocessableEntity, CodeValidation
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// writeError renders err with the status of its category. Internal errors
// are logged and hidden from the client.
func (h *Handlers) writeError(c *gin.Context, op string, err error) {
	status, code := statusFor(err)

	resp := Response{Success: false, Error: err.Error(), Code: code}
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			"op", op,
			"claim_id", c.Param("id"),
			"actor_id", actorID(c),
			"error", err,
		)
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	}

	c.JSON(status, resp)
}

// badRequest reports a request the handler could not decode
func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg, Code: CodeBadRequest})
}
