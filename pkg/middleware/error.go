package middleware

import (
	"net/http"

	"designhub-points/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler turns errors attached via c.Error into JSON responses.
// BaseError maps through its CoreStatus; anything else becomes a 500 with
// the detail kept out of the body.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()
		if v, ok := err.Err.(errutil.BaseError); ok {
			if v.Code == errutil.StatusInternal {
				zap.L().Error("request failed",
					zap.String("path", c.FullPath()),
					zap.Error(v),
				)
			}
			c.JSON(v.Code.HTTPStatus(), v)
			return
		}

		zap.L().Error("unhandled request error",
			zap.String("path", c.FullPath()),
			zap.Error(err.Err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    errutil.StatusInternal,
			"message": "internal server error",
		})
	}
}
