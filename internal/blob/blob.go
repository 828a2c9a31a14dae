// Package blob stores COA certificates and CMS uploads in a single bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default, dev)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

var (
	// ErrNotFound is returned when the key holds no object.
	ErrNotFound = errors.New("blob: object not found")
	// ErrExists is returned by Put when the key is already taken; objects are never overwritten.
	ErrExists = errors.New("blob: object already exists")
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored object.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"contentType,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"lastModified"`
}

// Store is a create-only object store.
type Store interface {
	// Put writes a new object; it fails with ErrExists instead of overwriting.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes the object and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// Copier is implemented by stores that can copy an object without reading
// it back through the client.
type Copier interface {
	CopyObject(ctx context.Context, src, dst string) (Info, error)
}

// Exists reports whether key holds an object.
func Exists(ctx context.Context, s Store, key string) (bool, error) {
	_, err := s.Head(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Copy duplicates src into dst. dst must not exist.
func Copy(ctx context.Context, s Store, src, dst string) (Info, error) {
	if c, ok := s.(Copier); ok {
		info, err := c.CopyObject(ctx, src, dst)
		if err != nil {
			return Info{}, fmt.Errorf("copy %s: %w", src, err)
		}
		return info, nil
	}

	info, rc, err := s.Get(ctx, src)
	if err != nil {
		return Info{}, fmt.Errorf("copy %s: %w", src, err)
	}
	defer rc.Close()

	return s.Put(ctx, dst, rc, PutOptions{ContentType: info.ContentType, Metadata: info.Metadata})
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
