package errutil

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Respond writes err as {"error": message} with its mapped status.
func Respond(c *gin.Context, err error) {
	status := HTTPStatus(err)
	if status >= 500 {
		zap.L().Error("[HTTP] request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": Message(err)})
}
