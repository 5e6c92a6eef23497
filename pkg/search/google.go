// Package search implements the web-search backend for the agent's
// search tool group.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sablehq/sable/pkg/models"
)

// Engine answers web-search queries. Search failures are reported in
// the result envelope rather than as Go errors so the model can react
// to them.
type Engine interface {
	Search(ctx context.Context, query, dateRange string) (*models.ToolResult, error)
}

const googleEndpoint = "https://www.googleapis.com/customsearch/v1"

// dateRestrict maps the tool's date_range values onto the Custom
// Search API's dateRestrict parameter. "all" and unknown values apply
// no restriction.
var dateRestrict = map[string]string{
	"past_hour":  "d1",
	"past_day":   "d1",
	"past_week":  "w1",
	"past_month": "m1",
	"past_year":  "y1",
}

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Results is the data payload returned to the model.
type Results struct {
	Query        string         `json:"query"`
	DateRange    string         `json:"date_range,omitempty"`
	SearchInfo   map[string]any `json:"search_info"`
	Results      []Result       `json:"results"`
	TotalResults string         `json:"total_results"`
}

// GoogleEngine queries the Google Custom Search JSON API.
type GoogleEngine struct {
	http     *http.Client
	apiKey   string
	engineID string
	endpoint string
}

// NewGoogleEngine returns an engine backed by the given API key and
// programmable search engine id.
func NewGoogleEngine(apiKey, engineID string) *GoogleEngine {
	return &GoogleEngine{
		http:     &http.Client{Timeout: 30 * time.Second},
		apiKey:   apiKey,
		engineID: engineID,
		endpoint: googleEndpoint,
	}
}

// Search runs one query. API and transport failures come back as an
// unsuccessful ToolResult with an empty result list.
func (g *GoogleEngine) Search(ctx context.Context, query, dateRange string) (*models.ToolResult, error) {
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)
	if restrict, ok := dateRestrict[dateRange]; ok {
		params.Set("dateRestrict", restrict)
	}

	data, err := g.query(ctx, params)
	if err != nil {
		slog.Error("Google Search API call failed", "query", query, "error", err)
		return &models.ToolResult{
			Success: false,
			Message: fmt.Sprintf("Google Search API call failed: %v", err),
			Data: map[string]any{
				"query":      query,
				"date_range": dateRange,
				"results":    []Result{},
			},
		}, nil
	}

	results := make([]Result, 0, len(data.Items))
	for _, item := range data.Items {
		results = append(results, Result{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
	}

	total := "0"
	searchInfo := map[string]any{}
	if data.SearchInformation != nil {
		searchInfo = data.SearchInformation
		if v, ok := data.SearchInformation["totalResults"].(string); ok {
			total = v
		}
	}

	return &models.ToolResult{
		Success: true,
		Data: Results{
			Query:        query,
			DateRange:    dateRange,
			SearchInfo:   searchInfo,
			Results:      results,
			TotalResults: total,
		},
	}, nil
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	SearchInformation map[string]any `json:"searchInformation"`
}

func (g *GoogleEngine) query(ctx context.Context, params url.Values) (*googleResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var data googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return &data, nil
}
