package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scout/cache"
	"github.com/use-agent/scout/content"
	"github.com/use-agent/scout/models"
)

// Extract returns a handler for GET /api/v1/extract.
//
// Advisory results (login wall, empty content) are not errors: they come
// back as 422 with a populated content object and actionable suggestions.
func Extract(ex *content.Extractor, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ExtractRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		key := cache.ExtractKey(req.URL, req.FullPage, req.Images())
		if cached := cc.GetExtract(key); cached != nil {
			writeExtract(c, req.URL, cached, "hit")
			return
		}

		result, err := ex.Extract(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}

		cc.PutExtract(key, result)
		writeExtract(c, req.URL, result, "miss")
	}
}

func writeExtract(c *gin.Context, url string, result *models.ExtractedContent, cacheStatus string) {
	resp := models.ExtractResponse{
		URL:         url,
		Content:     result,
		ExtractedAt: time.Now(),
		CacheStatus: cacheStatus,
	}

	status := http.StatusOK
	switch {
	case result.AuthRequired:
		status = http.StatusUnprocessableEntity
		resp.Message = "content requires authentication"
		resp.Suggestions = authSuggestions(result.Platform)
	case result.IsEmpty:
		status = http.StatusUnprocessableEntity
		resp.Message = "no meaningful content extracted"
		resp.Suggestions = map[string]string{
			"full_page": "retry with full=true to capture the whole document",
			"wait":      "the page may be rendering slowly; retry later",
		}
	}
	c.JSON(status, resp)
}

func authSuggestions(platform string) map[string]string {
	s := map[string]string{
		"public_version": "look for a public mirror or cached copy of the page",
	}
	if platform == "linkedin" {
		s["linkedin_scrape"] = "POST /api/v1/linkedin/scrape with credentials or manual mode"
	}
	return s
}
