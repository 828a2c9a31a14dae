package objref

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolver_KeyFromURL(t *testing.T) {
	r := NewResolver("https://files.example.com/", "")

	tests := []struct {
		name string
		raw  string
		key  string
		ok   bool
	}{
		{name: "canonical", raw: "https://files.example.com/storage/v1/object/public/coa-files/coas/ZT-2024-001_1.pdf", key: "coas/ZT-2024-001_1.pdf", ok: true},
		{name: "double bucket", raw: "https://files.example.com/storage/v1/object/public/coa-files/coa-files/coas/ZT-2024-001_1.pdf", key: "coas/ZT-2024-001_1.pdf", ok: true},
		{name: "double folder", raw: "https://files.example.com/storage/v1/object/public/coa-files/coas/coas/ZT-2024-001_1.pdf", key: "coas/ZT-2024-001_1.pdf", ok: true},
		{name: "bare key", raw: "coas/ZT-2024-001_1.pdf", key: "coas/ZT-2024-001_1.pdf", ok: true},
		{name: "foreign url", raw: "https://elsewhere.example.com/a.pdf", ok: false},
		{name: "empty", raw: "  ", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := r.KeyFromURL(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestResolver_RawKeyFromURL(t *testing.T) {
	r := NewResolver("https://files.example.com/", "")

	key, ok := r.RawKeyFromURL("https://files.example.com/storage/v1/object/public/coa-files/coa-files/coas/ZT-2024-001_1.pdf")
	assert.True(t, ok)
	assert.Equal(t, "coa-files/coas/ZT-2024-001_1.pdf", key)

	key, ok = r.RawKeyFromURL("https://files.example.com/storage/v1/object/public/coa-files/coas/coas/ZT-2024-001_1.pdf")
	assert.True(t, ok)
	assert.Equal(t, "coas/coas/ZT-2024-001_1.pdf", key)

	_, ok = r.RawKeyFromURL("https://elsewhere.example.com/a.pdf")
	assert.False(t, ok)
}

func TestResolver_Normalize(t *testing.T) {
	r := NewResolver("https://files.example.com", "coa-files")
	canonical := "https://files.example.com/storage/v1/object/public/coa-files/coas/ZT-2024-001_1.pdf"

	assert.False(t, r.IsDoubleNested(canonical))
	got, changed := r.Normalize(canonical)
	assert.False(t, changed)
	assert.Equal(t, canonical, got)

	nested := "https://files.example.com/storage/v1/object/public/coa-files/coa-files/coas/ZT-2024-001_1.pdf"
	assert.True(t, r.IsDoubleNested(nested))
	got, changed = r.Normalize(nested)
	assert.True(t, changed)
	assert.Equal(t, canonical, got)
}

func TestFileNaming(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	assert.Equal(t, "ZT-2024-001_1700000000123.pdf", FileName("ZT-2024-001", "sample.PDF", now))
	assert.Equal(t, "ZT-2024-001_1700000000123.pdf", FileName("ZT-2024-001", "", now))
	assert.Equal(t, "coas/ZT-2024-001_1700000000123.pdf", COAKey("ZT-2024-001", "sample.pdf", now))
	assert.Equal(t, "cms/1700000000123_hero-image.png", MediaKey("hero image.png", now))
	assert.Equal(t, "a-b-c", Sanitize("a b/c"))
}

func TestCodeFromKey(t *testing.T) {
	assert.Equal(t, "ZT-2024-001", CodeFromKey("coas/ZT-2024-001_1700000000123.pdf"))
	assert.Equal(t, "", CodeFromKey("coas/report.pdf"))
	assert.True(t, IsCOAKey("coas/x.pdf"))
	assert.False(t, IsCOAKey("cms/x.png"))

	assert.True(t, MatchesCode("coas/ZT-2024-001_1700000000123.pdf", "ZT-2024-001"))
	assert.False(t, MatchesCode("coas/ZT-2024-002_1700000000123.pdf", "ZT-2024-001"))
	assert.True(t, MatchesCode("coas/legacy-ZT-2024-001.pdf", "ZT-2024-001"))
	assert.False(t, MatchesCode("coas/anything.pdf", ""))
}
