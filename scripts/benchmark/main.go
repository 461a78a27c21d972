// Benchmark harness: exercises GET /search and GET /extract against a
// running instance and reports latency and output-size statistics.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "Scout API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per target for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// target is one benchmarked request.
type target struct {
	Label string
	Path  string // request path with query, relative to the API base
}

var targets = []target{
	{"SearchShort", "/api/v1/search?q=golang+concurrency&limit=5"},
	{"SearchLong", "/api/v1/search?q=adaptive+rate+limiting+strategies+for+web+crawlers&limit=10"},
	{"ExtractStatic", "/api/v1/extract?url=" + url.QueryEscape("https://example.com")},
	{"ExtractBlog", "/api/v1/extract?url=" + url.QueryEscape("https://go.dev/blog/go1.21")},
	{"ExtractDocs", "/api/v1/extract?url=" + url.QueryEscape("https://go.dev/doc/effective_go")},
	{"ExtractNoImages", "/api/v1/extract?images=false&url=" + url.QueryEscape("https://go.dev/blog/go1.21")},
}

type runResult struct {
	Run        int    `json:"run"`
	TotalMs    int64  `json:"total_ms"`
	StatusCode int    `json:"status_code"`
	BodyBytes  int    `json:"body_bytes"`
	Success    bool   `json:"success"`
	Advisory   bool   `json:"advisory,omitempty"`
	Error      string `json:"error,omitempty"`
}

type targetResult struct {
	Label     string      `json:"label"`
	Path      string      `json:"path"`
	Runs      []runResult `json:"runs"`
	AvgMs     float64     `json:"avg_ms"`
	AvgBytes  float64     `json:"avg_bytes"`
	Successes int         `json:"successes"`
}

type report struct {
	Timestamp  string         `json:"timestamp"`
	APIURL     string         `json:"api_url"`
	RunsPerURL int            `json:"runs_per_target"`
	Results    []targetResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Scout Benchmark Suite ===")
	fmt.Printf("API URL:      %s\n", *apiURL)
	fmt.Printf("Runs/target:  %d\n", *runs)
	fmt.Printf("Output:       %s\n", *output)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintln(os.Stderr, "Make sure Scout is running (e.g. make run)")
		os.Exit(1)
	}

	rep := report{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	client := &http.Client{Timeout: 180 * time.Second}
	for _, t := range targets {
		fmt.Printf("Benchmarking [%s] ...\n", t.Label)
		tr := targetResult{Label: t.Label, Path: t.Path}

		var sumMs int64
		var sumBytes int
		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := runOnce(client, *apiURL+t.Path, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d bytes\n", rr.TotalMs, rr.BodyBytes)
				tr.Successes++
				sumMs += rr.TotalMs
				sumBytes += rr.BodyBytes
			} else if rr.Advisory {
				fmt.Printf("ADVISORY (%d)  %dms\n", rr.StatusCode, rr.TotalMs)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			tr.Runs = append(tr.Runs, rr)
		}
		if tr.Successes > 0 {
			tr.AvgMs = float64(sumMs) / float64(tr.Successes)
			tr.AvgBytes = float64(sumBytes) / float64(tr.Successes)
		}
		rep.Results = append(rep.Results, tr)
	}

	printSummary(rep)

	data, err := json.MarshalIndent(rep, "", "  ")
	if err == nil {
		err = os.WriteFile(*output, data, 0o644)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nReport written to %s\n", *output)
}

func runOnce(client *http.Client, fullURL string, run int) runResult {
	rr := runResult{Run: run}

	req, err := http.NewRequest(http.MethodGet, fullURL, nil)
	if err != nil {
		rr.Error = err.Error()
		return rr
	}
	if *apiKey != "" {
		req.Header.Set("X-API-Key", *apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	rr.TotalMs = time.Since(start).Milliseconds()
	if err != nil {
		rr.Error = err.Error()
		return rr
	}
	defer resp.Body.Close()

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		rr.Error = "invalid JSON response: " + err.Error()
		return rr
	}

	rr.StatusCode = resp.StatusCode
	rr.BodyBytes = len(body)
	switch {
	case resp.StatusCode == http.StatusOK:
		rr.Success = true
	case resp.StatusCode == http.StatusUnprocessableEntity:
		rr.Advisory = true
	default:
		rr.Error = "HTTP " + strconv.Itoa(resp.StatusCode)
	}
	return rr
}

func checkAPI(base string) error {
	resp, err := http.Get(base + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned %d", resp.StatusCode)
	}
	return nil
}

func printSummary(rep report) {
	fmt.Println("\n=== Summary ===")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tOK\tAVG MS\tAVG BYTES")
	for _, r := range rep.Results {
		fmt.Fprintf(w, "%s\t%d/%d\t%.0f\t%.0f\n",
			r.Label, r.Successes, len(r.Runs), r.AvgMs, r.AvgBytes)
	}
	w.Flush()
}
