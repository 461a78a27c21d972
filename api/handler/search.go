package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scout/cache"
	"github.com/use-agent/scout/engine"
	"github.com/use-agent/scout/models"
)

// Search returns a handler for GET /api/v1/search.
//
// Flow:
//  1. Bind & validate query parameters, apply defaults.
//  2. Cache lookup — a hit skips the engine chain and the rate budget.
//  3. Orchestrator walks the engine chain.
//  4. Store & return.
func Search(orc *engine.Orchestrator, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
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

		key := cache.SearchKey(req.Query, req.Limit)
		if cached := cc.GetSearch(key); cached != nil {
			cached.CacheStatus = "hit"
			c.JSON(http.StatusOK, cached)
			return
		}

		resp, err := orc.Search(c.Request.Context(), req.Query, req.Limit)
		if err != nil {
			respondError(c, err)
			return
		}

		resp.CacheStatus = "miss"
		cc.PutSearch(key, resp)
		c.JSON(http.StatusOK, resp)
	}
}
