package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/finreact/config"
)

// SerpAPIClient runs Google searches through SerpAPI
type SerpAPIClient struct {
	client     *resty.Client
	apiKey     string
	maxResults int
}

// NewSerpAPIClient creates a new SerpAPI client
func NewSerpAPIClient(cfg *config.Config) *SerpAPIClient {
	client := resty.New()
	client.SetBaseURL(cfg.Search.SerpAPIBaseURL)
	client.SetTimeout(cfg.Market.HTTPTimeout)

	return &SerpAPIClient{
		client:     client,
		apiKey:     cfg.Search.SerpAPIKey,
		maxResults: cfg.Search.MaxResults,
	}
}

type serpResponse struct {
	Error     string `json:"error"`
	AnswerBox *struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
		Title   string `json:"title"`
	} `json:"answer_box"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic_results"`
}

// Search returns one line per result: the answer box first, then organic results.
func (c *SerpAPIClient) Search(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("search query cannot be empty")
	}
	if c.apiKey == "" {
		return "", fmt.Errorf("serpapi: %w", ErrMissingAPIKey)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"engine":  "google",
			"q":       query,
			"api_key": c.apiKey,
			"num":     strconv.Itoa(c.maxResults),
		}).
		Get("/search.json")
	if err != nil {
		return "", fmt.Errorf("serpapi search: %w", err)
	}

	var payload serpResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return "", fmt.Errorf("decode serpapi response (HTTP %d): %w", resp.StatusCode(), err)
	}
	if payload.Error != "" {
		return "", fmt.Errorf("serpapi: %s", payload.Error)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("serpapi: HTTP %d", resp.StatusCode())
	}

	lines := make([]string, 0, len(payload.OrganicResults)+1)
	if ab := payload.AnswerBox; ab != nil {
		switch {
		case ab.Answer != "":
			lines = append(lines, ab.Answer)
		case ab.Snippet != "":
			lines = append(lines, ab.Snippet)
		}
	}
	for i, r := range payload.OrganicResults {
		if c.maxResults > 0 && i >= c.maxResults {
			break
		}
		lines = append(lines, resultLine(r.Title, r.Snippet))
	}
	if len(lines) == 0 {
		return "No good search result found", nil
	}
	return strings.Join(lines, "\n"), nil
}

func resultLine(title, snippet string) string {
	title = strings.Join(strings.Fields(title), " ")
	snippet = strings.Join(strings.Fields(snippet), " ")
	switch {
	case title == "":
		return snippet
	case snippet == "":
		return title
	}
	return title + ": " + snippet
}
