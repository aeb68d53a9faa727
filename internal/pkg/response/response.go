package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Every JSON endpoint answers with the same envelope: {success, ...} on the
// happy path and {success:false, error} on failure. Errors are terminal for
// the request; nothing is retried server-side.

// OK sends a 200 response with a data payload.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// OKMessage sends a 200 response with a human-readable message.
func OKMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// OKMessageData sends a 200 response with both a message and a payload.
func OKMessageData(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "data": data})
}

// Created sends a 201 response with both a message and a payload.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": message, "data": data})
}

// BadRequest sends a 400 error response for malformed input.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": message})
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "not found"
	}
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "error": message})
}

// Upstream sends an error caused by an external provider, surfacing the
// provider's detail when available.
func Upstream(c *gin.Context, status int, message string) {
	if status < 400 {
		status = http.StatusBadGateway
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

// InternalError sends a 500 error response. The underlying error is expected
// to be logged by the caller; its detail is withheld from the response.
func InternalError(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
}

// MethodNotAllowed sends a 405 error response.
func MethodNotAllowed(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"success": false, "error": "method not allowed"})
}

// TooManyRequests sends a 429 error response.
func TooManyRequests(c *gin.Context) {
	c.Header("Retry-After", "1")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "too many requests"})
}
