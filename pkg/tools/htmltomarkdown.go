package tools

import (
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"

	"github.com/richard-senior/mcp-runtime/internal/logger"
	"github.com/richard-senior/mcp-runtime/pkg/transport"
)

const maxMarkdownLength = 10000

// RegisterHTMLToMarkdown wires the html_to_markdown tool into r. It fetches
// a URL (transparently decompressing gzip/deflate/brotli via
// transport.GetHtml), extracts a title with goquery, and renders the body
// to markdown for easier LLM consumption.
func RegisterHTMLToMarkdown(r *Registry) error {
	return r.Register(RegisterOptions{
		Name: "html_to_markdown",
		Description: "Fetches a URL, assumes the response is HTML, and converts it to Markdown for consumption " +
			"by LLM clients. Use this for a precis/summary of a web page or to follow up on a google_search result.",
		Params: []ParamDesc{
			{Name: "url", Category: CategorySingle, Type: "string", Description: "The URL of the HTML page to convert to markdown, e.g. https://www.example.com/", Required: true},
		},
		Category: "web",
		Execute:  executeHTMLToMarkdown,
	})
}

func executeHTMLToMarkdown(acc *Accessor, _ any) (Value, error) {
	target := acc.String("url")
	if strings.TrimSpace(target) == "" {
		return NullValue(), &WrapperError{Kind: ErrValidation, Message: "url parameter is required"}
	}

	body, err := transport.GetHtml(target)
	if err != nil {
		return NullValue(), &WrapperError{Kind: ErrExecution, Message: err.Error()}
	}

	domain, err := extractDomain(target)
	if err != nil {
		logger.Warn("html_to_markdown: failed to extract domain", err)
		domain = "unknown"
	}

	title := extractTitle(body)

	markdown, err := htmltomarkdown.ConvertString(string(body), converter.WithDomain(domain))
	if err != nil {
		return NullValue(), &WrapperError{Kind: ErrExecution, Message: err.Error()}
	}
	if len(markdown) > maxMarkdownLength {
		markdown = markdown[:maxMarkdownLength] + "\n\n... (content truncated due to size)"
	}
	if title != "" {
		markdown = "# " + title + "\n\n" + markdown
	}

	return StringValue(markdown), nil
}

func extractTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func extractDomain(rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	scheme := "https://"
	if strings.HasPrefix(rawURL, "http://") {
		scheme = "http://"
	}
	return scheme + parsed.Hostname(), nil
}
