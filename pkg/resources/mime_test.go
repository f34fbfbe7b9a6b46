package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectMimeKnownExtensions(t *testing.T) {
	assert.Equal(t, "text/markdown", DetectMime("readme.md"))
	assert.Equal(t, "application/json", DetectMime("data.JSON"))
	assert.Equal(t, "image/png", DetectMime("a/b/c.png"))
}

func TestDetectMimeUnknownExtensionFallsBack(t *testing.T) {
	assert.Equal(t, defaultMimeType, DetectMime("file.unknownext"))
	assert.Equal(t, defaultMimeType, DetectMime("noextension"))
}

func TestIsTextual(t *testing.T) {
	assert.True(t, isTextual("text/plain"))
	assert.True(t, isTextual("application/json"))
	assert.False(t, isTextual("image/png"))
	assert.False(t, isTextual("application/octet-stream"))
}
