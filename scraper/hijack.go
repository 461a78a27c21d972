package scraper

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/scout/config"
)

// heavyResourceTypes are blocked on every session. Search-results and
// article pages render their text content without them, and skipping them
// keeps per-attempt bandwidth close to what a returning human visitor with
// a warm cache produces.
var heavyResourceTypes = map[proto.NetworkResourceType]struct{}{
	proto.NetworkResourceTypeFont:  {},
	proto.NetworkResourceTypeMedia: {},
}

// setupHijack installs a request interceptor that drops heavyweight
// resource types. Returns the running HijackRouter so the caller can defer
// router.Stop(), or nil when nothing is blocked.
//
// Images are intentionally NOT blocked at the network layer: the content
// pipeline needs their src attributes for absolutization, and a browser
// that never fetches images is itself a bot signal.
func setupHijack(page *rod.Page, cfg config.BrowserConfig) *rod.HijackRouter {
	router := page.HijackRequests()

	// Pattern "*" + empty resourceType = intercept ALL requests, then
	// decide per-request whether to block or continue.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, blocked := heavyResourceTypes[ctx.Request.Type()]; blocked {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	// It will exit when router.Stop() is called.
	go router.Run()

	return router
}
