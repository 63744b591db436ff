package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cartercloud/cartercloud/util"
)

const defaultMaxBodySize = 64 * 1024 * 1024 // 64MB; uploads arrive as base64 JSON

// BodySizeLimit returns middleware that restricts the request body to the
// given size string (e.g. "10MB", "512KB", "1GB").
func BodySizeLimit(maxSize string) gin.HandlerFunc {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, size)
		c.Next()
	}
}
