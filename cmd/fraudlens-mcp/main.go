package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/fraudlens/models"
)

func main() {
	apiURL := os.Getenv("FRAUDLENS_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3000"
	}
	apiURL = strings.TrimRight(apiURL, "/")
	apiKey := os.Getenv("FRAUDLENS_API_KEY")

	s := server.NewMCPServer(
		"fraudlens",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scanURLTool := mcp.NewTool("scan_url",
		mcp.WithDescription("Render a web page in a headless browser and assess it for phishing and fraud. Returns a 0-100 risk score, risk level, fraud types, indicators and safety advice."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to scan"),
		),
	)
	s.AddTool(scanURLTool, handleScanURL(apiURL, apiKey))

	healthTool := mcp.NewTool("service_health",
		mcp.WithDescription("Report fraudlens scan queue occupancy and cache size."),
	)
	s.AddTool(healthTool, handleHealth(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleScanURL(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		status, respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/scan", models.ScanRequest{URL: url})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if status != http.StatusOK {
			var errResp models.ErrorResponse
			if err := json.Unmarshal(respBody, &errResp); err != nil || errResp.Code == "" {
				return mcp.NewToolResultError(fmt.Sprintf("scan failed with HTTP %d", status)), nil
			}
			msg := fmt.Sprintf("[%s] %s", errResp.Code, errResp.Message)
			if errResp.Details != "" {
				msg += ": " + errResp.Details
			}
			return mcp.NewToolResultError(msg), nil
		}

		var result models.ScanResult
		if err := json.Unmarshal(respBody, &result); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		return mcp.NewToolResultText(formatScan(&result)), nil
	}
}

func handleHealth(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 10 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/health", nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		resp, err := client.Do(req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		var health models.HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"Status: %s\nUptime: %s\nScans active: %d/%d\nScans queued: %d\nCached results: %d",
			health.Status, health.Uptime, health.Gate.Active, health.Gate.Limit, health.Gate.Queued, health.CacheItems,
		)), nil
	}
}

// formatScan renders a scan result as plain text for the model.
func formatScan(r *models.ScanResult) string {
	a := r.Analysis
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\nRisk: %.0f/100 (%s)\n", r.URL, a.RiskScore, a.RiskLevel)
	if a.IsSimulated {
		fmt.Fprintf(&b, "NOTE: simulated result, the analysis service was unavailable (%s)\n", a.DegradationReason)
	}
	if r.Cached {
		b.WriteString("Served from cache\n")
	}
	writeList(&b, "Fraud types", a.FraudTypes)
	writeList(&b, "Indicators", a.Indicators)
	writeList(&b, "Safety advice", a.SafetyAdvice)
	if len(r.Markers) > 0 {
		b.WriteString("\nMarked regions (percent of page):\n")
		for _, m := range r.Markers {
			fmt.Fprintf(&b, "- %s at top %.0f, left %.0f, %.0fx%.0f\n", m.Label, m.Top, m.Left, m.Width, m.Height)
		}
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

// apiPost sends a POST request to the fraudlens API and returns the status
// and response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
