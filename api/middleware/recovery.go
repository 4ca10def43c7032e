package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/fraudlens/models"
)

// Recovery turns a handler panic into a GeneralError response.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.Error("http: panic recovered", "request_id", GetRequestID(c), "panic", recovered)
		abortWithKind(c, models.KindGeneral, "")
	})
}
