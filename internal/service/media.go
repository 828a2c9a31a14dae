package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emrgen/coa/internal/blob"
	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/objref"
	"github.com/emrgen/coa/internal/store"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

// MaxMediaSize bounds CMS uploads.
const MaxMediaSize = 10 << 20

// MediaService stores CMS uploads (images and PDFs) and records them in cms_media.
type MediaService struct {
	store    store.MediaStore
	blobs    blob.Store
	resolver objref.Resolver
	now      func() time.Time
}

func NewMediaService(store store.MediaStore, blobs blob.Store, resolver objref.Resolver) *MediaService {
	return &MediaService{store: store, blobs: blobs, resolver: resolver, now: time.Now}
}

func (s *MediaService) Upload(ctx context.Context, fileName, altText string, r io.Reader) (*model.Media, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxMediaSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidFile)
	}
	if len(data) > MaxMediaSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidFile, MaxMediaSize)
	}

	mt := mimetype.Detect(data)
	if !allowedMedia(mt) {
		return nil, fmt.Errorf("%w: %s uploads are not allowed", ErrInvalidFile, mt.String())
	}

	key := objref.MediaKey(fileName, s.now())
	info, err := s.blobs.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{ContentType: mt.String()})
	if err != nil {
		logrus.Errorf("error uploading media %s: %v", fileName, err)
		return nil, fmt.Errorf("upload media: %w", err)
	}

	media := &model.Media{
		FileName: fileName,
		Key:      key,
		URL:      s.resolver.PublicURL(key),
		MimeType: mt.String(),
		Size:     info.Size,
		AltText:  altText,
	}
	if err := s.store.CreateMedia(ctx, media); err != nil {
		logrus.Errorf("error recording media %s: %v", key, err)
		if _, derr := s.blobs.Delete(ctx, key); derr != nil {
			logrus.Warnf("could not remove media %s: %v", key, derr)
		}
		return nil, fmt.Errorf("record media: %w", err)
	}

	return media, nil
}

func (s *MediaService) List(ctx context.Context) ([]*model.Media, error) {
	return s.store.ListMedia(ctx)
}

// Delete removes the object best effort, then the row.
func (s *MediaService) Delete(ctx context.Context, id string) error {
	media, err := s.store.GetMedia(ctx, id)
	if err != nil {
		return fmt.Errorf("delete media %s: %w", id, err)
	}

	if _, err := s.blobs.Delete(ctx, media.Key); err != nil {
		logrus.Warnf("could not remove media %s: %v", media.Key, err)
	}

	if err := s.store.DeleteMedia(ctx, id); err != nil {
		return fmt.Errorf("delete media %s: %w", id, err)
	}
	return nil
}

func allowedMedia(mt *mimetype.MIME) bool {
	return strings.HasPrefix(mt.String(), "image/") || mt.Is("application/pdf")
}
