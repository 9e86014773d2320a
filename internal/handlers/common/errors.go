package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

// Error body builders for the three client dialects.

func OpenAIError(message, errType string) gin.H {
	return gin.H{"error": gin.H{"message": message, "type": errType}}
}

func ClaudeError(message, errType string) gin.H {
	return gin.H{"type": "error", "error": gin.H{"type": errType, "message": message}}
}

func GeminiError(code int, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message, "status": http.StatusText(code)}}
}

// WriteDispatchError renders a dispatcher failure. Upstream passthrough
// bodies keep their original status and payload; everything else is shaped
// by shape (one of the builders above).
func WriteDispatchError(c *gin.Context, err error, shape func(status int, message string) gin.H) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if len(httpErr.Body) > 0 && gjson.ValidBytes(httpErr.Body) {
			c.Data(httpErr.Status, "application/json", httpErr.Body)
			return
		}
		c.JSON(httpErr.Status, shape(httpErr.Status, string(httpErr.Body)))
		return
	}
	if errors.Is(err, c.Request.Context().Err()) && c.Request.Context().Err() != nil {
		// Client went away; nothing useful to write.
		c.Abort()
		return
	}
	c.JSON(http.StatusBadGateway, shape(http.StatusBadGateway, err.Error()))
}

// OpenAIShape adapts OpenAIError to WriteDispatchError.
func OpenAIShape(status int, message string) gin.H {
	errType := "api_error"
	if status == http.StatusTooManyRequests {
		errType = "rate_limit_error"
	}
	return OpenAIError(message, errType)
}

// ClaudeShape adapts ClaudeError to WriteDispatchError.
func ClaudeShape(status int, message string) gin.H {
	errType := "api_error"
	switch status {
	case http.StatusTooManyRequests:
		errType = "rate_limit_error"
	case http.StatusBadRequest:
		errType = "invalid_request_error"
	}
	return ClaudeError(message, errType)
}

// GeminiShape adapts GeminiError to WriteDispatchError.
func GeminiShape(status int, message string) gin.H {
	return GeminiError(status, message)
}
