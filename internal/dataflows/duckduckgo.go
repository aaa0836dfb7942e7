package dataflows

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/dyike/finreact/config"
)

// DuckDuckGoClient scrapes the DuckDuckGo HTML endpoint; no API key needed
type DuckDuckGoClient struct {
	client     *resty.Client
	maxResults int
}

// NewDuckDuckGoClient creates a new DuckDuckGo scraper
func NewDuckDuckGoClient(cfg *config.Config) *DuckDuckGoClient {
	client := resty.New()
	client.SetBaseURL(cfg.Search.DuckDuckGoBaseURL)
	client.SetTimeout(cfg.Market.HTTPTimeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; finreact/1.0)")

	return &DuckDuckGoClient{
		client:     client,
		maxResults: cfg.Search.MaxResults,
	}
}

// Search returns "title: snippet" lines for the organic results.
func (c *DuckDuckGoClient) Search(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("search query cannot be empty")
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		Get("/html/")
	if err != nil {
		return "", fmt.Errorf("duckduckgo search: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("duckduckgo search: HTTP %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return "", fmt.Errorf("parse duckduckgo html: %w", err)
	}

	var lines []string
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		line := resultLine(s.Find(".result__a").First().Text(), s.Find(".result__snippet").First().Text())
		if line != "" {
			lines = append(lines, line)
		}
		return c.maxResults <= 0 || len(lines) < c.maxResults
	})

	if len(lines) == 0 {
		return "No good search result found", nil
	}
	return strings.Join(lines, "\n"), nil
}
