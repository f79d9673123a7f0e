package common

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse wraps every JSON body the API returns.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError is the error half of the envelope. Code repeats the HTTP status.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Success writes data with the given status.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, APIResponse{Success: true, Data: data})
}

// Error writes an error envelope with the given status and message.
func Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, APIResponse{
		Error: &APIError{Code: statusCode, Message: message},
	})
}

// HandleError picks the status from the first HTTPError in err's chain.
// Anything else is logged and reported as a bare 500.
func HandleError(c *gin.Context, err error) {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.HTTPStatus() >= http.StatusInternalServerError {
			slog.Warn("request failed", "path", c.FullPath(), "error", err)
		}
		Error(c, httpErr.HTTPStatus(), httpErr.PublicMessage())
		return
	}

	slog.Error("unhandled request error", "path", c.FullPath(), "error", err)
	Error(c, http.StatusInternalServerError, "internal server error")
}
