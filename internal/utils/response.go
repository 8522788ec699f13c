package utils

import "github.com/gin-gonic/gin"

// Machine-readable error codes surfaced to the boundary layer
const (
	CodeInvalidInput           = "invalid_input"
	CodeRateLimited            = "rate_limited"
	CodeCostExceeded           = "cost_exceeded"
	CodeTooLarge               = "too_large"
	CodeCompressionUnavailable = "compression_unavailable"
	CodeNotFound               = "not_found"
	CodeInternal               = "internal_error"
)

func Success(c *gin.Context, data gin.H) {
	c.JSON(200, gin.H{
		"success": true,
		"data":    data,
	})
}

func Accepted(c *gin.Context, data gin.H) {
	c.JSON(202, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"success": false,
		"code":    code,
		"error":   msg,
	})
}
