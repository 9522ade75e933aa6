package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/raktseva/raktseva-api/internal/handler"
	apperrors "github.com/raktseva/raktseva-api/pkg/errors"
)

// ErrorHandler converts errors attached to the gin context into JSON
// responses. Application errors carry their own status; anything else
// is a 500 with a generic message.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		lastErr := c.Errors.Last().Err

		if appErr, ok := apperrors.AsAppError(lastErr); ok {
			if appErr.Code == apperrors.ErrInternal {
				log.Error().
					Err(appErr).
					Str("request_id", requestID).
					Str("path", c.Request.URL.Path).
					Str("method", c.Request.Method).
					Msg("request failed")
			}
			c.JSON(appErr.HTTPStatus(), handler.NewErrorResponse(appErr.Message))
			return
		}

		log.Error().
			Err(lastErr).
			Str("request_id", requestID).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
	}
}
