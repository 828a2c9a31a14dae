package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/store"
	"github.com/sirupsen/logrus"
)

// ContentService is the admin side of the CMS. Writes are last-writer-wins
// and each one invalidates the loader cache.
type ContentService struct {
	store  store.ContentStore
	loader *ContentLoader
}

func NewContentService(store store.ContentStore, loader *ContentLoader) *ContentService {
	return &ContentService{store: store, loader: loader}
}

func (s *ContentService) SetSiteSetting(ctx context.Context, key, value string) (*model.SiteSetting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: setting key is required", ErrValidation)
	}

	setting := &model.SiteSetting{Key: key, Value: value}
	if err := s.store.UpsertSiteSetting(ctx, setting); err != nil {
		logrus.Errorf("error saving setting %s: %v", key, err)
		return nil, fmt.Errorf("save setting %s: %w", key, err)
	}

	s.changed(ctx)
	return setting, nil
}

func (s *ContentService) SetPageContent(ctx context.Context, content *model.PageContent) (*model.PageContent, error) {
	content.Page = strings.TrimSpace(content.Page)
	content.Section = strings.TrimSpace(content.Section)
	content.Key = strings.TrimSpace(content.Key)
	if content.Page == "" || content.Section == "" || content.Key == "" {
		return nil, fmt.Errorf("%w: page, section and key are required", ErrValidation)
	}

	if err := s.store.UpsertPageContent(ctx, content); err != nil {
		logrus.Errorf("error saving content %s/%s/%s: %v", content.Page, content.Section, content.Key, err)
		return nil, fmt.Errorf("save page content: %w", err)
	}

	s.changed(ctx)
	return content, nil
}

func (s *ContentService) ListPageContent(ctx context.Context, page string) ([]*model.PageContent, error) {
	return s.store.ListPageContent(ctx, page)
}

func (s *ContentService) ListHeroSections(ctx context.Context) ([]*model.HeroSection, error) {
	return s.store.ListHeroSections(ctx)
}

func (s *ContentService) SaveHeroSection(ctx context.Context, hero *model.HeroSection) (*model.HeroSection, error) {
	if strings.TrimSpace(hero.Page) == "" || strings.TrimSpace(hero.Title) == "" {
		return nil, fmt.Errorf("%w: hero page and title are required", ErrValidation)
	}
	if err := s.store.SaveHeroSection(ctx, hero); err != nil {
		logrus.Errorf("error saving hero for %s: %v", hero.Page, err)
		return nil, fmt.Errorf("save hero section: %w", err)
	}

	s.changed(ctx)
	return hero, nil
}

func (s *ContentService) DeleteHeroSection(ctx context.Context, id uint) error {
	if err := s.store.DeleteHeroSection(ctx, id); err != nil {
		return fmt.Errorf("delete hero section %d: %w", id, err)
	}
	s.changed(ctx)
	return nil
}

func (s *ContentService) ListServices(ctx context.Context) ([]*model.Service, error) {
	return s.store.ListServices(ctx, true)
}

func (s *ContentService) SaveService(ctx context.Context, service *model.Service) (*model.Service, error) {
	if strings.TrimSpace(service.Title) == "" {
		return nil, fmt.Errorf("%w: service title is required", ErrValidation)
	}
	if err := s.store.SaveService(ctx, service); err != nil {
		logrus.Errorf("error saving service %q: %v", service.Title, err)
		return nil, fmt.Errorf("save service: %w", err)
	}

	s.changed(ctx)
	return service, nil
}

func (s *ContentService) DeleteService(ctx context.Context, id uint) error {
	if err := s.store.DeleteService(ctx, id); err != nil {
		return fmt.Errorf("delete service %d: %w", id, err)
	}
	s.changed(ctx)
	return nil
}

func (s *ContentService) ListTestimonials(ctx context.Context) ([]*model.Testimonial, error) {
	return s.store.ListTestimonials(ctx, true)
}

func (s *ContentService) SaveTestimonial(ctx context.Context, t *model.Testimonial) (*model.Testimonial, error) {
	if strings.TrimSpace(t.Author) == "" || strings.TrimSpace(t.Quote) == "" {
		return nil, fmt.Errorf("%w: testimonial author and quote are required", ErrValidation)
	}
	if t.Rating == 0 {
		t.Rating = 5
	}
	if t.Rating < 1 || t.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	if err := s.store.SaveTestimonial(ctx, t); err != nil {
		logrus.Errorf("error saving testimonial by %s: %v", t.Author, err)
		return nil, fmt.Errorf("save testimonial: %w", err)
	}

	s.changed(ctx)
	return t, nil
}

func (s *ContentService) DeleteTestimonial(ctx context.Context, id uint) error {
	if err := s.store.DeleteTestimonial(ctx, id); err != nil {
		return fmt.Errorf("delete testimonial %d: %w", id, err)
	}
	s.changed(ctx)
	return nil
}

func (s *ContentService) ListBlogPosts(ctx context.Context) ([]*model.BlogPost, error) {
	return s.store.ListBlogPosts(ctx, false, 0)
}

// SaveBlogPost stamps PublishedAt the first time a post is published.
func (s *ContentService) SaveBlogPost(ctx context.Context, post *model.BlogPost) (*model.BlogPost, error) {
	post.Slug = strings.TrimSpace(post.Slug)
	if post.Slug == "" || strings.TrimSpace(post.Title) == "" {
		return nil, fmt.Errorf("%w: blog slug and title are required", ErrValidation)
	}
	if post.Published && post.PublishedAt == nil {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}
	if err := s.store.SaveBlogPost(ctx, post); err != nil {
		logrus.Errorf("error saving blog post %s: %v", post.Slug, err)
		return nil, fmt.Errorf("save blog post %s: %w", post.Slug, err)
	}

	s.changed(ctx)
	return post, nil
}

func (s *ContentService) DeleteBlogPost(ctx context.Context, id uint) error {
	if err := s.store.DeleteBlogPost(ctx, id); err != nil {
		return fmt.Errorf("delete blog post %d: %w", id, err)
	}
	s.changed(ctx)
	return nil
}

func (s *ContentService) changed(ctx context.Context) {
	if s.loader != nil {
		s.loader.Invalidate(ctx)
	}
}
