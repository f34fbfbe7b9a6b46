package resources

import (
	"context"
	"fmt"
	"strings"

	"github.com/richard-senior/mcp-runtime/pkg/protocol"
)

// TemplateHandler resolves a matched template's captured parameter into
// concrete content. isBinary selects whether text or binary is returned;
// the unused return is left zero.
type TemplateHandler func(ctx context.Context, param string) (text string, binary []byte, isBinary bool, err error)

// template is a registered resource template: a URI pattern with exactly
// one {param} placeholder at the tail, per §3/§4.5's restricted grammar.
type template struct {
	URITemplate string
	Name        string
	Title       string
	Description string
	MimeType    string
	ParamName   string
	Params      []protocol.ResourceTemplateParam
	Handler     TemplateHandler

	prefix string
}

// newTemplate validates and builds a template, rejecting any placeholder
// not at the tail (or more than one) as "unsupported template" — §8's
// resource template invariant.
func newTemplate(uriTemplate, name, title, description, mimeType string, params []protocol.ResourceTemplateParam, handler TemplateHandler) (*template, error) {
	open := strings.Index(uriTemplate, "{")
	closeIdx := strings.Index(uriTemplate, "}")
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return nil, fmt.Errorf("unsupported template %q: no {param} placeholder", uriTemplate)
	}
	if closeIdx != len(uriTemplate)-1 {
		return nil, fmt.Errorf("unsupported template %q: {param} must be the final token", uriTemplate)
	}
	if strings.Count(uriTemplate, "{") != 1 || strings.Count(uriTemplate, "}") != 1 {
		return nil, fmt.Errorf("unsupported template %q: exactly one {param} placeholder is allowed", uriTemplate)
	}

	paramName := uriTemplate[open+1 : closeIdx]
	prefix := uriTemplate[:open]

	return &template{
		URITemplate: uriTemplate,
		Name:        name,
		Title:       title,
		Description: description,
		MimeType:    mimeType,
		ParamName:   paramName,
		Params:      params,
		Handler:     handler,
		prefix:      prefix,
	}, nil
}

// match succeeds iff uri equals the template's static prefix followed by a
// non-empty captured remainder.
func (t *template) match(uri string) (string, bool) {
	if !strings.HasPrefix(uri, t.prefix) {
		return "", false
	}
	captured := uri[len(t.prefix):]
	if captured == "" {
		return "", false
	}
	return captured, true
}

func (t *template) info() protocol.ResourceTemplateInfo {
	return protocol.ResourceTemplateInfo{
		URITemplate: t.URITemplate,
		Name:        t.Name,
		Title:       t.Title,
		Description: t.Description,
		MimeType:    t.MimeType,
		Parameters:  t.Params,
	}
}
