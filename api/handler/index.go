package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/fraudlens/web"
)

// Index serves the embedded single-page front end at GET /.
func Index() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
	}
}
