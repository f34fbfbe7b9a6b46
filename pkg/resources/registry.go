package resources

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/richard-senior/mcp-runtime/internal/logger"
	"github.com/richard-senior/mcp-runtime/pkg/protocol"
	"github.com/richard-senior/mcp-runtime/pkg/transport"
)

var uriRE = regexp.MustCompile(`\S+`)

// Registry is the C7 resource registry: concrete resources keyed by URI,
// plus an ordered list of templates matched in registration order, both
// guarded by a single reader-writer lock.
type Registry struct {
	mu           sync.RWMutex
	resources    map[string]*resource
	templates    []*template
	maxResources int

	// OnListChanged, when set, is invoked after a concrete resource or
	// template is successfully added; a host wires this to push
	// notifications/resources/list_changed to subscribed connections.
	OnListChanged func()
}

func NewRegistry(maxResources int) *Registry {
	if maxResources <= 0 {
		maxResources = 100
	}
	return &Registry{resources: map[string]*resource{}, maxResources: maxResources}
}

func (r *Registry) add(res *resource) error {
	if !uriRE.MatchString(res.URI) {
		return fmt.Errorf("invalid resource uri %q", res.URI)
	}

	r.mu.Lock()
	if _, exists := r.resources[res.URI]; exists {
		r.mu.Unlock()
		return fmt.Errorf("resource %q already registered", res.URI)
	}
	if len(r.resources) >= r.maxResources {
		r.mu.Unlock()
		return fmt.Errorf("resource registry at capacity (%d)", r.maxResources)
	}
	r.resources[res.URI] = res
	r.mu.Unlock()
	logger.Info("registered resource %s", res.URI)
	if r.OnListChanged != nil {
		r.OnListChanged()
	}
	return nil
}

// AddText registers a static text resource.
func (r *Registry) AddText(uri, name, description, mimeType, content string) error {
	if mimeType == "" {
		mimeType = "text/plain"
	}
	return r.add(&resource{URI: uri, Name: name, Description: description, MimeType: mimeType, Kind: KindText, Text: content})
}

// AddBinary registers a static binary resource.
func (r *Registry) AddBinary(uri, name, description, mimeType string, data []byte) error {
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	return r.add(&resource{URI: uri, Name: name, Description: description, MimeType: mimeType, Kind: KindBinary, Binary: data})
}

// AddTextFunction registers a resource whose content is computed on read.
func (r *Registry) AddTextFunction(uri, name, description, mimeType string, fn TextFunc) error {
	if mimeType == "" {
		mimeType = "text/plain"
	}
	return r.add(&resource{URI: uri, Name: name, Description: description, MimeType: mimeType, Kind: KindFunction, TextFn: fn})
}

// AddBinaryFunction registers a binary resource whose content is computed on read.
func (r *Registry) AddBinaryFunction(uri, name, description, mimeType string, fn BinaryFunc) error {
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	return r.add(&resource{URI: uri, Name: name, Description: description, MimeType: mimeType, Kind: KindFunction, BinaryFn: fn})
}

// AddFile registers a resource backed by a single file path, read with the
// §4.5 safety checks on every access (not cached at registration time).
func (r *Registry) AddFile(uri, name, description, path string) error {
	return r.add(&resource{URI: uri, Name: name, Description: description, MimeType: DetectMime(path), Kind: KindFile, FilePath: path})
}

// AddHttp registers a resource fetched over HTTP on every read, reusing the
// transparent gzip/deflate/brotli decompressing client.
func (r *Registry) AddHttp(uri, name, description, mimeType, remoteURL string) error {
	if mimeType == "" {
		mimeType = "text/html"
	}
	return r.add(&resource{URI: uri, Name: name, Description: description, MimeType: mimeType, Kind: KindHttp, HttpURL: remoteURL})
}

// AddTemplate registers a parameterized resource template. Registration
// fails immediately if the template's {param} placeholder is not a single
// trailing token, per §8's resource template invariant.
func (r *Registry) AddTemplate(uriTemplate, name, title, description, mimeType string, params []protocol.ResourceTemplateParam, handler TemplateHandler) error {
	t, err := newTemplate(uriTemplate, name, title, description, mimeType, params, handler)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = append(r.templates, t)
	r.mu.Unlock()
	logger.Info("registered resource template %s", uriTemplate)
	if r.OnListChanged != nil {
		r.OnListChanged()
	}
	return nil
}

// AddFileTemplate is a convenience wrapper over AddTemplate for the common
// case of a template whose captured parameter is a file path to read
// relative to the working directory, with the §4.5 safety checks applied.
func (r *Registry) AddFileTemplate(uriTemplate, name, description string) error {
	return r.AddTemplate(uriTemplate, name, "", description, "", []protocol.ResourceTemplateParam{
		{Name: "path", Description: "relative file path", Required: true},
	}, func(_ context.Context, param string) (string, []byte, bool, error) {
		data, err := readFileSafe(param)
		if err != nil {
			return "", nil, false, err
		}
		if isTextual(DetectMime(param)) {
			return string(data), nil, false, nil
		}
		return "", data, true, nil
	})
}

// Count returns the number of concrete resources plus templates, matching
// §4.3's capability rule: "resources included iff any resource or template
// is registered".
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resources) + len(r.templates)
}

// ListResources renders only concrete resources, per §4.5.
func (r *Registry) ListResources() []protocol.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]protocol.Resource, 0, len(r.resources))
	for _, res := range r.resources {
		out = append(out, protocol.Resource{URI: res.URI, Name: res.Name, Description: res.Description, MimeType: res.MimeType})
	}
	return out
}

// ListTemplates renders every registered template.
func (r *Registry) ListTemplates() []protocol.ResourceTemplateInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]protocol.ResourceTemplateInfo, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t.info())
	}
	return out
}

// ReadResource implements §4.5's resources/read resolution order: exact
// match first, then the first matching template, else an error (which the
// engine maps to InternalError — no partial content is ever returned).
func (r *Registry) ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error) {
	r.mu.RLock()
	res, exact := r.resources[uri]
	var matched *template
	var param string
	if !exact {
		for _, t := range r.templates {
			if p, ok := t.match(uri); ok {
				matched = t
				param = p
				break
			}
		}
	}
	r.mu.RUnlock()

	if exact {
		return r.readConcrete(ctx, res)
	}
	if matched != nil {
		return r.readTemplate(ctx, matched, uri, param)
	}
	return nil, fmt.Errorf("no resource or template matches uri %q", uri)
}

func (r *Registry) readConcrete(ctx context.Context, res *resource) ([]protocol.ResourceContents, error) {
	switch res.Kind {
	case KindText:
		return textContents(res.URI, res.MimeType, res.Text), nil

	case KindBinary:
		return binaryContents(res.URI, res.MimeType, res.Binary), nil

	case KindFunction:
		if res.TextFn != nil {
			text, err := res.TextFn(ctx)
			if err != nil {
				return nil, err
			}
			return textContents(res.URI, res.MimeType, text), nil
		}
		if res.BinaryFn != nil {
			data, err := res.BinaryFn(ctx)
			if err != nil {
				return nil, err
			}
			return binaryContents(res.URI, res.MimeType, data), nil
		}
		return nil, fmt.Errorf("resource %q has no function handler", res.URI)

	case KindFile:
		data, err := readFileSafe(res.FilePath)
		if err != nil {
			return nil, err
		}
		if isTextual(res.MimeType) {
			return textContents(res.URI, res.MimeType, string(data)), nil
		}
		return binaryContents(res.URI, res.MimeType, data), nil

	case KindHttp:
		data, err := transport.GetHtml(res.HttpURL)
		if err != nil {
			return nil, err
		}
		if res.MimeType == "text/plain" {
			text, err := extractVisibleText(data)
			if err != nil {
				return nil, fmt.Errorf("extracting text from %s: %w", res.HttpURL, err)
			}
			return textContents(res.URI, res.MimeType, text), nil
		}
		if isTextual(res.MimeType) {
			return textContents(res.URI, res.MimeType, string(data)), nil
		}
		return binaryContents(res.URI, res.MimeType, data), nil

	default:
		return nil, fmt.Errorf("resource %q has unknown kind", res.URI)
	}
}

func (r *Registry) readTemplate(ctx context.Context, t *template, uri, param string) ([]protocol.ResourceContents, error) {
	text, binary, isBinary, err := t.Handler(ctx, param)
	if err != nil {
		return nil, err
	}
	mimeType := t.MimeType
	if mimeType == "" {
		mimeType = DetectMime(param)
	}
	if isBinary {
		return binaryContents(uri, mimeType, binary), nil
	}
	return textContents(uri, mimeType, text), nil
}

// extractVisibleText strips tags from an HTML body fetched for a resource
// registered as text/plain, reusing the same goquery parse the markdown and
// search tools apply to scraped pages: a caller declaring text/plain for a
// URL that actually serves text/html gets the page's rendered text, not
// its markup.
func extractVisibleText(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()
	return strings.TrimSpace(doc.Text()), nil
}

func textContents(uri, mimeType, text string) []protocol.ResourceContents {
	return []protocol.ResourceContents{{URI: uri, MimeType: mimeType, Text: text}}
}

// binaryContents emits the base64 blob field MCP specifies, resolving the
// open question about the text-placeholder stand-in the original read path
// used for binary content.
func binaryContents(uri, mimeType string, data []byte) []protocol.ResourceContents {
	return []protocol.ResourceContents{{URI: uri, MimeType: mimeType, Blob: base64.StdEncoding.EncodeToString(data)}}
}
