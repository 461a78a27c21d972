// Package handler contains the Gin handlers for the HTTP surface.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scout/models"
)

// respondError writes a JSON error envelope with a status derived from the
// error code.
func respondError(c *gin.Context, err error) {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}
	c.JSON(mapErrorToStatus(scrapeErr), gin.H{"error": scrapeErr.ToDetail()})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeAuthRequired:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeRateLimited, models.ErrCodeQuotaExceeded:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeBlocked, models.ErrCodeAllEnginesDown:
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}
