package response

import "github.com/gin-gonic/gin"

// Meta describes pagination of a list response. Total is the match count
// before pagination is applied.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Success writes the standard success envelope.
func Success(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success":    true,
		"statusCode": statusCode,
		"message":    message,
		"data":       data,
	})
}

// SuccessWithMeta writes the success envelope with pagination metadata.
func SuccessWithMeta(c *gin.Context, statusCode int, message string, data interface{}, meta Meta) {
	c.JSON(statusCode, gin.H{
		"success":    true,
		"statusCode": statusCode,
		"message":    message,
		"data":       data,
		"meta":       meta,
	})
}

// Error writes the standard error envelope.
func Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"success":    false,
		"statusCode": statusCode,
		"message":    message,
	})
}

// ErrorWithDetails writes the error envelope with extra context, e.g.
// validation failures.
func ErrorWithDetails(c *gin.Context, statusCode int, message string, details interface{}) {
	c.JSON(statusCode, gin.H{
		"success":      false,
		"statusCode":   statusCode,
		"message":      message,
		"errorDetails": details,
	})
}
