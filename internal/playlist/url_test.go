package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"embed url", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"mobile url", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"extra params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"bare id", "dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"garbage", "not a url", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractVideoID(tt.url))
		})
	}
}

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"playlist url", "https://www.youtube.com/playlist?list=PLdPYZgDU4Gs1x8g3S8vu0iMFvEOVwIcB", "PLdPYZgDU4Gs1x8g3S8vu0iMFvEOVwIcB"},
		{"watch with list", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLdPYZgDU4Gs1x8g3S8vu0iMFvEOVwIcB", "PLdPYZgDU4Gs1x8g3S8vu0iMFvEOVwIcB"},
		{"bare playlist id", "PLdPYZgDU4Gs1x8g3S8vu0iMFvEOVwIcB", "PLdPYZgDU4Gs1x8g3S8vu0iMFvEOVwIcB"},
		{"bare video id rejected", "dQw4w9WgXcQ", ""},
		{"garbage", "not a url", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPlaylistID(tt.url))
		})
	}
}

func TestIsValidVideoID(t *testing.T) {
	assert.True(t, IsValidVideoID("dQw4w9WgXcQ"))
	assert.False(t, IsValidVideoID("too-short"))
	assert.False(t, IsValidVideoID("way too long to be a video id"))
}

func TestDefaultCatalogResolvable(t *testing.T) {
	for _, entry := range DefaultCatalog {
		assert.NotEmpty(t, ExtractPlaylistID(entry.URL), "catalog url %q must parse", entry.URL)
	}
}
