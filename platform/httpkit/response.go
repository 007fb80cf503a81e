// Package httpkit holds the gin plumbing shared by every module: identity
// extraction, JWT and rate-limit middleware, and the error envelope.
package httpkit

import (
	"net/http"

	"estate_portal_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

const msgInternal = "internal server error"

// ErrorResponse is the body of every non-2xx response. Kind and Code are set
// for typed business errors so clients can branch on them.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Error writes a plain error body, used for request-shape failures that
// never reach the service.
func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// HandleError renders err and reports whether it did. *apperr.Error values
// choose the status from their Kind; anything else is attached to the gin
// context for the request logger and rendered as an opaque 500.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	appErr, ok := apperr.As(err)
	if !ok {
		_ = c.Error(err)
		appErr = apperr.Internal(msgInternal)
	}
	if appErr.Kind == apperr.KindUnavailable {
		_ = c.Error(err)
	}
	c.JSON(appErr.HTTPStatus(), ErrorResponse{
		Error:   appErr.Message,
		Kind:    appErr.Kind.String(),
		Code:    appErr.Code,
		Details: appErr.Details,
	})
	return true
}
