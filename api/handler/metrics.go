package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics returns a handler for GET /metrics in Prometheus exposition format.
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
