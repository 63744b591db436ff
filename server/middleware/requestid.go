package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cartercloud/cartercloud/logger"
)

// HeaderRequestID is the wire header carrying the request id.
const HeaderRequestID = "X-Request-Id"

// RequestID tags every request with a unique id, honoring one already
// supplied by the client, and echoes it on the response so storage failures
// can be correlated across client and server logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(logger.FieldRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}
