package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/fraudlens/api/middleware"
	"github.com/use-agent/fraudlens/models"
)

// Scanner runs one scan. *scan.Service implements it.
type Scanner interface {
	Scan(ctx context.Context, rawURL, requestID string) (*models.ScanResult, error)
}

// Scan returns a handler for POST /api/scan.
//
// Orchestration flow:
//  1. Parse & validate request body.
//  2. Scanner.Scan → cache, gate, extract, assess, locate.
//  3. Map a ScanError to its status, or return 200 with the result.
func Scan(s Scanner) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := middleware.GetRequestID(c)

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScanError(models.KindValidation, err))
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			respondError(c, models.NewScanError(models.KindValidation, errors.New("url is required")))
			return
		}

		// ── 2. Scan ─────────────────────────────────────────────────
		result, err := s.Scan(c.Request.Context(), req.URL, requestID)
		if err != nil {
			respondError(c, err)
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		c.JSON(http.StatusOK, result)
	}
}

// respondError maps an error to its HTTP status and writes the standard
// error body. Errors that are not ScanErrors are reported as GeneralError.
func respondError(c *gin.Context, err error) {
	var scanErr *models.ScanError
	if !errors.As(err, &scanErr) {
		scanErr = models.NewScanError(models.KindGeneral, err)
	}

	body := models.NewErrorResponse(scanErr.Kind, "", middleware.GetRequestID(c))
	body.Message = scanErr.Message
	if scanErr.Err != nil {
		body.Details = scanErr.Err.Error()
	}
	c.JSON(models.StatusForKind(scanErr.Kind), body)
}
