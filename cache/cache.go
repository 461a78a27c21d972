// Package cache holds recent search and extraction responses so repeated
// identical requests skip the browser entirely, sparing the rate budget.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/use-agent/scout/config"
	"github.com/use-agent/scout/models"
)

// Cache wraps an expiring in-memory store keyed by request shape.
type Cache struct {
	store   *gocache.Cache
	enabled bool
}

// New builds the cache from configuration. A disabled cache is a valid
// value whose Get always misses.
func New(cfg config.CacheConfig) *Cache {
	if !cfg.Enabled {
		return &Cache{}
	}
	return &Cache{
		store:   gocache.New(cfg.TTL, cfg.TTL/2),
		enabled: true,
	}
}

// SearchKey derives the cache key for one search request.
func SearchKey(query string, limit int) string {
	return digest("search", query, strconv.Itoa(limit))
}

// ExtractKey derives the cache key for one extraction request.
func ExtractKey(url string, fullPage, images bool) string {
	return digest("extract", url, btoa(fullPage), btoa(images))
}

// GetSearch returns a cached search response, or nil on miss.
func (c *Cache) GetSearch(key string) *models.SearchResponse {
	if !c.enabled {
		return nil
	}
	if v, ok := c.store.Get(key); ok {
		return v.(*models.SearchResponse)
	}
	return nil
}

// PutSearch stores a search response under key.
func (c *Cache) PutSearch(key string, resp *models.SearchResponse) {
	if c.enabled {
		c.store.Set(key, resp, gocache.DefaultExpiration)
	}
}

// GetExtract returns a cached extraction, or nil on miss.
func (c *Cache) GetExtract(key string) *models.ExtractedContent {
	if !c.enabled {
		return nil
	}
	if v, ok := c.store.Get(key); ok {
		return v.(*models.ExtractedContent)
	}
	return nil
}

// PutExtract stores an extraction under key. Advisory results are stored
// with a shorter lifetime: a login wall seen once may clear when the page
// is retried with different stealth parameters.
func (c *Cache) PutExtract(key string, content *models.ExtractedContent) {
	if !c.enabled {
		return
	}
	if content.Advisory() {
		c.store.Set(key, content, time.Minute)
		return
	}
	c.store.Set(key, content, gocache.DefaultExpiration)
}

// ItemCount reports how many entries are live, for health reporting.
func (c *Cache) ItemCount() int {
	if !c.enabled {
		return 0
	}
	return c.store.ItemCount()
}

func digest(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{'|'})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}


func btoa(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
