package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/cartercloud/cartercloud/errors"
	"github.com/cartercloud/cartercloud/logger"
)

// RespondWithError inspects err: if it is an *apperrors.AppError the status
// and structured body are derived automatically; otherwise a generic 500 is
// sent. Server-side faults (5xx) are logged with their operation details and
// cause before the sanitized body goes out, since the cause never reaches
// the client.
func RespondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		fields := map[string]interface{}{
			"code":   string(appErr.Code),
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}
		for k, v := range appErr.Details {
			fields[k] = v
		}
		if id := c.GetString(logger.FieldRequestID); id != "" {
			fields[logger.FieldRequestID] = id
		}
		if appErr.Cause != nil {
			fields[logger.FieldError] = appErr.Cause.Error()
		}
		logger.Error(appErr.Message, fields)
	}

	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondOK sends a 200 response with data as the body.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}
