package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/emrgen/coa/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG header, enough for content sniffing
var samplePNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func TestMediaService(t *testing.T) {
	ctx := context.Background()
	blobs := tester.Blobs()
	s := NewMediaService(tester.Store(t), blobs, testResolver())

	media, err := s.Upload(ctx, "hero banner.png", "Lab bench", bytes.NewReader(samplePNG))
	require.NoError(t, err)
	assert.Equal(t, "image/png", media.MimeType)
	assert.True(t, strings.HasPrefix(media.Key, "cms/"))
	assert.True(t, strings.HasSuffix(media.Key, "_hero-banner.png"))
	assert.Equal(t, testResolver().PublicURL(media.Key), media.URL)

	_, err = s.Upload(ctx, "brochure.pdf", "", bytes.NewReader(samplePDF))
	require.NoError(t, err)

	_, err = s.Upload(ctx, "script.sh", "", strings.NewReader("#!/bin/sh\necho hi\n"))
	assert.ErrorIs(t, err, ErrInvalidFile)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.Delete(ctx, media.ID))
	_, err = blobs.Head(ctx, media.Key)
	assert.Error(t, err)

	assert.ErrorIs(t, s.Delete(ctx, media.ID), ErrNotFound)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "A record with this identifier already exists.", Message(ErrDuplicate))
	assert.Equal(t, "The requested record could not be found.", Message(ErrNotFound))
	assert.Equal(t, "The database is not set up yet. Run the migrations first.", Message(ErrMissingTable))
	assert.Contains(t, Message(ErrValidation), "validation failed")
	assert.Equal(t, "Something went wrong. Please try again.", Message(assert.AnError))
}
