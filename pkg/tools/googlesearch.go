package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/richard-senior/mcp-runtime/internal/logger"
)

// searchResult is one scraped Google result row.
type searchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// RegisterGoogleSearch wires a headless-browser Google search tool into r.
// It is registered as both dangerous (drives an external network browse on
// the host's behalf) and async/long-running, to exercise
// is_dangerous/is_async/max_execution_time_ms against a real cooperative
// cancellation path: googleSearch watches ctx.Done() and tears the browser
// down early rather than running to completion once the deadline passes.
func RegisterGoogleSearch(r *Registry) error {
	return r.Register(RegisterOptions{
		Name:        "google_search",
		Description: "Performs a Google search for the given text and returns the top 'num' results using a headless browser.",
		Params: []ParamDesc{
			{Name: "query", Category: CategorySingle, Type: "string", Description: "The search string to enter into Google search", Required: true},
			{Name: "num", Category: CategorySingle, Type: "integer", Description: "The number of results to return (1-10, default 5)"},
		},
		Category:           "web",
		IsAsync:             true,
		IsDangerous:         true,
		MaxExecutionTimeMs:  20000,
		Execute:             executeGoogleSearch,
	})
}

func executeGoogleSearch(acc *Accessor, _ any) (Value, error) {
	query := acc.String("query")
	if strings.TrimSpace(query) == "" {
		return NullValue(), &WrapperError{Kind: ErrValidation, Message: "query parameter is required and must be a non-empty string"}
	}

	num := acc.Int("num")
	if num <= 0 || num > 10 {
		num = 5
	}

	results, err := googleSearch(acc.Context(), query, num)
	if err != nil {
		return NullValue(), &WrapperError{Kind: ErrExecution, Message: err.Error()}
	}

	encoded, err := json.Marshal(map[string]any{
		"results": results,
		"query":   query,
		"count":   len(results),
	})
	if err != nil {
		return NullValue(), &WrapperError{Kind: ErrInternal, Message: err.Error()}
	}
	return StringValue(string(encoded)), nil
}

func googleSearch(ctx context.Context, query string, num int) ([]searchResult, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			logger.Warn("google_search: context cancelled, closing browser early")
			browser.Close()
		case <-done:
		}
	}()

	page, err := browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	searchURL := fmt.Sprintf("https://www.google.com/search?q=%s&num=%d", url.QueryEscape(query), num)
	if _, err := page.Goto(searchURL); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	if err := browser.Close(); err != nil {
		logger.Warn("google_search: error closing browser", err)
	}

	return parseGoogleResults(content, num)
}

func parseGoogleResults(html string, num int) ([]searchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	var results []searchResult
	doc.Find("div.g").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link, _ := s.Find("a").First().Attr("href")
		title := strings.TrimSpace(s.Find("h3").First().Text())
		desc := strings.TrimSpace(s.Find("div.VwiC3b, span.aCOpRe").First().Text())
		if title != "" && link != "" {
			results = append(results, searchResult{Title: title, URL: link, Description: desc})
		}
		return len(results) < num
	})
	return results, nil
}
