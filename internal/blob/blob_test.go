package blob_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/emrgen/coa/internal/blob"
	"github.com/emrgen/coa/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) blob.Store{
		"memory": func(t *testing.T) blob.Store { return blob.NewMemory() },
		"fs": func(t *testing.T) blob.Store {
			s, err := blob.NewFilesystem(t.TempDir())
			require.NoError(t, err)
			return s
		},
		"s3": func(t *testing.T) blob.Store { return tester.MinioBlobs(t) },
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			testStore(t, open(t))
		})
	}
}

func testStore(t *testing.T, s blob.Store) {
	ctx := context.Background()
	key := "coas/ZT-2024-001_1700000000000.pdf"

	info, err := s.Put(ctx, key, strings.NewReader("%PDF-1.4 test"), blob.PutOptions{
		ContentType: "application/pdf",
		Metadata:    map[string]string{"coa-id": "ZT-2024-001"},
	})
	require.NoError(t, err)
	assert.Equal(t, key, info.Key)
	assert.Equal(t, int64(13), info.Size)

	_, err = s.Put(ctx, key, strings.NewReader("other"), blob.PutOptions{})
	assert.ErrorIs(t, err, blob.ErrExists)

	got, rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(data))
	assert.Equal(t, "application/pdf", got.ContentType)

	ok, err := blob.Exists(ctx, s, key)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = blob.Copy(ctx, s, key, "coas/ZT-2024-002_1700000000001.pdf")
	require.NoError(t, err)

	list, err := s.List(ctx, "coas/")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, key, list[0].Key)

	existed, err := s.Delete(ctx, key)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Delete(ctx, key)
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = s.Head(ctx, key)
	assert.ErrorIs(t, err, blob.ErrNotFound)

	_, _, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	s, err := blob.NewFilesystem(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../escape.pdf", strings.NewReader("x"), blob.PutOptions{})
	assert.Error(t, err)
}
