// Command scout-mcp exposes the Scout HTTP API as MCP tools over stdio.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// searchResponse mirrors the Scout search API response.
type searchResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title        string `json:"title"`
		Link         string `json:"link"`
		Snippet      string `json:"snippet"`
		Position     int    `json:"position"`
		SourceEngine string `json:"source_engine"`
	} `json:"results"`
	Count int `json:"count"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// extractResponse mirrors the Scout extract API response.
type extractResponse struct {
	URL     string `json:"url"`
	Content *struct {
		Title        string `json:"title"`
		Markdown     string `json:"markdown"`
		Platform     string `json:"platform"`
		AuthRequired bool   `json:"auth_required"`
		IsEmpty      bool   `json:"is_empty"`
	} `json:"content"`
	Message     string            `json:"message"`
	Suggestions map[string]string `json:"suggestions"`
	Error       *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("SCOUT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("SCOUT_API_KEY")

	s := server.NewMCPServer(
		"scout",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("web_search",
		mcp.WithDescription("Search the web and return structured results (title, link, snippet). Falls back across multiple search engines automatically."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search phrase"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10, max: 50)"),
		),
	)
	s.AddTool(searchTool, handleSearch(apiURL, apiKey))

	extractTool := mcp.NewTool("extract_content",
		mcp.WithDescription("Fetch a web page in a headless browser and return its main content as Markdown. Detects login walls and reports them instead of returning boilerplate."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to extract"),
		),
		mcp.WithBoolean("full_page",
			mcp.Description("Extract the whole document instead of the main content region"),
		),
		mcp.WithBoolean("include_images",
			mcp.Description("Keep images in the Markdown output (default: true)"),
		),
	)
	s.AddTool(extractTool, handleExtract(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleSearch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}
		limit := request.GetInt("limit", 10)

		target := apiURL + "/api/v1/search?q=" + url.QueryEscape(query) + "&limit=" + strconv.Itoa(limit)
		body, apiErr, err := doGet(ctx, client, target, apiKey)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if apiErr != "" {
			return mcp.NewToolResultError(apiErr), nil
		}

		var resp searchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if resp.Error != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "%d results for %q:\n\n", resp.Count, resp.Query)
		for _, r := range resp.Results {
			fmt.Fprintf(&sb, "%d. %s\n   %s\n", r.Position, r.Title, r.Link)
			if r.Snippet != "" {
				fmt.Fprintf(&sb, "   %s\n", r.Snippet)
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleExtract(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pageURL, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		target := apiURL + "/api/v1/extract?url=" + url.QueryEscape(pageURL)
		if request.GetBool("full_page", false) {
			target += "&full=true"
		}
		if !request.GetBool("include_images", true) {
			target += "&images=false"
		}

		body, apiErr, err := doGet(ctx, client, target, apiKey)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if apiErr != "" {
			return mcp.NewToolResultError(apiErr), nil
		}

		var resp extractResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if resp.Error != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)), nil
		}
		if resp.Content == nil {
			return mcp.NewToolResultError("empty response"), nil
		}
		if resp.Content.AuthRequired || resp.Content.IsEmpty {
			var sb strings.Builder
			sb.WriteString(resp.Message)
			for k, v := range resp.Suggestions {
				fmt.Fprintf(&sb, "\n- %s: %s", k, v)
			}
			return mcp.NewToolResultError(sb.String()), nil
		}

		result := fmt.Sprintf("Title: %s\nSource: %s\n\n%s",
			resp.Content.Title, resp.URL, resp.Content.Markdown)
		return mcp.NewToolResultText(result), nil
	}
}

// doGet performs an authenticated GET. The second return value carries an
// API-level error message for non-2xx/422 responses.
func doGet(ctx context.Context, client *http.Client, target, apiKey string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}

	// 422 carries a structured advisory the caller renders itself.
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnprocessableEntity {
		return body, fmt.Sprintf("API returned %d: %s", resp.StatusCode, truncate(string(body), 300)), nil
	}
	return body, "", nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
