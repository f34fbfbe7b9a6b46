package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTitleFindsTitleTag(t *testing.T) {
	html := []byte(`<html><head><title>  Example Page  </title></head><body></body></html>`)
	assert.Equal(t, "Example Page", extractTitle(html))
}

func TestExtractTitleEmptyWhenAbsent(t *testing.T) {
	html := []byte(`<html><body>no title here</body></html>`)
	assert.Equal(t, "", extractTitle(html))
}

func TestExtractDomainAddsSchemeWhenMissing(t *testing.T) {
	domain, err := extractDomain("example.com/path")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", domain)
}

func TestExtractDomainPreservesExplicitScheme(t *testing.T) {
	domain, err := extractDomain("http://example.com/path?x=1")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", domain)
}

func TestExecuteHTMLToMarkdownRejectsEmptyURL(t *testing.T) {
	acc := NewAccessor(nil, nil)
	_, err := executeHTMLToMarkdown(acc, nil)
	require.Error(t, err)
	we, ok := err.(*WrapperError)
	require.True(t, ok)
	assert.Equal(t, ErrValidation, we.Kind)
}
