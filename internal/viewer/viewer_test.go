package viewer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fileURL = "http://localhost:4020/storage/v1/object/public/coa-files/coas/ZT-2024-001_1.pdf"

func TestEmbedURL(t *testing.T) {
	v, err := New("")
	require.NoError(t, err)

	assert.Equal(t,
		"https://docs.google.com/viewer?embedded=true&url=http%3A%2F%2Flocalhost%3A4020%2Fstorage%2Fv1%2Fobject%2Fpublic%2Fcoa-files%2Fcoas%2FZT-2024-001_1.pdf",
		v.EmbedURL(fileURL))

	custom, err := New("https://viewer.example.com/embed")
	require.NoError(t, err)
	assert.Contains(t, custom.EmbedURL(fileURL), "https://viewer.example.com/embed?embedded=true&url=")
}

func TestRenderWithFile(t *testing.T) {
	v, err := New("")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, v.Render(&buf, Document{Code: "ZT-2024-001", FileURL: fileURL}))
	html := buf.String()

	assert.Contains(t, html, "Certificate of Analysis ZT-2024-001")
	assert.Contains(t, html, `<iframe id="frame" src="https://docs.google.com/viewer?embedded=true&amp;url=`)
	assert.Contains(t, html, "Open the PDF in a new tab")
	assert.Contains(t, html, `var rawURL = "http`)
}

func TestRenderWithoutFile(t *testing.T) {
	v, err := New("")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, v.Render(&buf, Document{Code: "ZT-2024-002", Title: "TB-500"}))
	html := buf.String()

	assert.NotContains(t, html, "<iframe")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "No certificate file is available for ZT-2024-002 yet.")
}
