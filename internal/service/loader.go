package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/emrgen/coa/internal/cache"
	"github.com/emrgen/coa/internal/metrics"
	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/store"
	"github.com/sirupsen/logrus"
)

// DefaultContentTTL is how long loaded CMS content is served from cache.
const DefaultContentTTL = 5 * time.Minute

// PageBundle is everything a public page needs in one response.
type PageBundle struct {
	Page     string                       `json:"page"`
	Hero     *model.HeroSection           `json:"hero,omitempty"`
	Content  map[string]map[string]string `json:"content"`
	Settings map[string]string            `json:"settings"`
}

// ContentLoader reads CMS content for the public site through a cache.
// Within the TTL repeated loads of the same content issue no store query.
type ContentLoader struct {
	store store.ContentStore
	cache cache.Cache
	ttl   time.Duration
}

// NewContentLoader falls back to a process local cache when c is nil.
func NewContentLoader(store store.ContentStore, c cache.Cache, ttl time.Duration) *ContentLoader {
	if ttl <= 0 {
		ttl = DefaultContentTTL
	}
	if c == nil {
		c = cache.NewMemory(ttl)
	}
	return &ContentLoader{store: store, cache: c, ttl: ttl}
}

// LoadSiteSettings returns every site setting as a key/value map.
func (l *ContentLoader) LoadSiteSettings(ctx context.Context) (map[string]string, error) {
	return cached(ctx, l, "settings", func() (map[string]string, error) {
		settings, err := l.store.ListSiteSettings(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]string, len(settings))
		for _, s := range settings {
			out[s.Key] = s.Value
		}
		return out, nil
	})
}

// LoadPageContent returns the slots of page grouped by section.
func (l *ContentLoader) LoadPageContent(ctx context.Context, page string) (map[string]map[string]string, error) {
	return cached(ctx, l, "page:"+page, func() (map[string]map[string]string, error) {
		rows, err := l.store.ListPageContent(ctx, page)
		if err != nil {
			return nil, err
		}
		out := make(map[string]map[string]string)
		for _, row := range rows {
			if out[row.Section] == nil {
				out[row.Section] = make(map[string]string)
			}
			out[row.Section][row.Key] = row.Value
		}
		return out, nil
	})
}

// LoadHero returns the active hero of page, or nil when it has none.
func (l *ContentLoader) LoadHero(ctx context.Context, page string) (*model.HeroSection, error) {
	return cached(ctx, l, "hero:"+page, func() (*model.HeroSection, error) {
		hero, err := l.store.GetHeroSection(ctx, page)
		if err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		if !hero.Active {
			return nil, nil
		}
		return hero, nil
	})
}

func (l *ContentLoader) LoadServices(ctx context.Context) ([]*model.Service, error) {
	return cached(ctx, l, "services", func() ([]*model.Service, error) {
		return l.store.ListServices(ctx, false)
	})
}

func (l *ContentLoader) LoadTestimonials(ctx context.Context) ([]*model.Testimonial, error) {
	return cached(ctx, l, "testimonials", func() ([]*model.Testimonial, error) {
		return l.store.ListTestimonials(ctx, false)
	})
}

// LoadBlogPosts returns published posts, newest first. limit <= 0 returns all.
func (l *ContentLoader) LoadBlogPosts(ctx context.Context, limit int) ([]*model.BlogPost, error) {
	return cached(ctx, l, "blog:"+strconv.Itoa(limit), func() ([]*model.BlogPost, error) {
		return l.store.ListBlogPosts(ctx, true, limit)
	})
}

// LoadPage bundles the hero, slots and site settings of page.
func (l *ContentLoader) LoadPage(ctx context.Context, page string) (*PageBundle, error) {
	hero, err := l.LoadHero(ctx, page)
	if err != nil {
		return nil, err
	}
	content, err := l.LoadPageContent(ctx, page)
	if err != nil {
		return nil, err
	}
	settings, err := l.LoadSiteSettings(ctx)
	if err != nil {
		return nil, err
	}
	return &PageBundle{Page: page, Hero: hero, Content: content, Settings: settings}, nil
}

// Invalidate drops every cached entry.
func (l *ContentLoader) Invalidate(ctx context.Context) {
	if err := l.cache.Flush(ctx); err != nil {
		logrus.Warnf("error invalidating content cache: %v", err)
	}
}

func cached[T any](ctx context.Context, l *ContentLoader, key string, load func() (T, error)) (T, error) {
	var value T
	ok, err := l.cache.Get(ctx, key, &value)
	if err != nil {
		logrus.Warnf("content cache get %s: %v", key, err)
	}
	if ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return value, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	value, err = load()
	if err != nil {
		logrus.Errorf("error loading content %s: %v", key, err)
		var zero T
		return zero, fmt.Errorf("load %s: %w", key, err)
	}

	if err := l.cache.Set(ctx, key, value, l.ttl); err != nil {
		logrus.Warnf("content cache set %s: %v", key, err)
	}
	return value, nil
}
