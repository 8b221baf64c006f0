package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slspinola/bee2waste-sub002/pkg/errors"
	"github.com/slspinola/bee2waste-sub002/pkg/logging"
)

// APIErrorResponse is the uniform error body of every endpoint.
type APIErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	Payload   interface{}       `json:"payload,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// AbortWithAppError writes an AppError response and aborts the chain.
func AbortWithAppError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, APIErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		Payload:   appErr.Payload,
		RequestID: GetRequestID(c),
	})
}

// ErrorResponder centralises handler error responses.
type ErrorResponder struct {
	logger *logging.Logger
}

// NewErrorResponder creates an ErrorResponder
func NewErrorResponder(logger *logging.Logger) *ErrorResponder {
	return &ErrorResponder{logger: logger}
}

// Respond maps any error to the uniform response. Unknown errors become a
// 500 without leaking internals.
func (r *ErrorResponder) Respond(c *gin.Context, err error) {
	appErr, ok := errors.IsAppError(err)
	if !ok {
		appErr = errors.ErrInternalWrap(err)
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		r.logger.Error("Request failed",
			"code", appErr.Code,
			"path", c.Request.URL.Path,
			"error", appErr.Error(),
		)
	}

	AbortWithAppError(c, appErr)
}

// BadRequest answers a binding/validation failure.
func (r *ErrorResponder) BadRequest(c *gin.Context, err error) {
	r.Respond(c, errors.ErrBadRequest(err.Error()))
}

// NoRoute is the catch-all 404 handler
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		AbortWithAppError(c, errors.NewAppError(errors.CodeNotFound, "route not found", http.StatusNotFound))
	}
}

// NoMethod is the catch-all 405 handler
func NoMethod() gin.HandlerFunc {
	return func(c *gin.Context) {
		AbortWithAppError(c, errors.NewAppError(errors.CodeBadRequest, "method not allowed", http.StatusMethodNotAllowed))
	}
}
