package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scout/linkedin"
	"github.com/use-agent/scout/models"
)

// LinkedIn returns a handler for POST /api/v1/linkedin/scrape.
//
// The request must opt into an authentication mode: manual (an externally
// established session) or credentials (email + password). Credentials are
// used for the login submission only and never logged or stored.
func LinkedIn(sc *linkedin.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LinkedInScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		resp, err := sc.Scrape(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}

		status := http.StatusOK
		if resp.Profile != nil && resp.Profile.Advisory() {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, resp)
	}
}
