package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emrgen/coa/internal/cache"
	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/store"
	"github.com/emrgen/coa/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts the service list queries that reach the database.
type countingStore struct {
	store.ContentStore
	services atomic.Int32
}

func (c *countingStore) ListServices(ctx context.Context, all bool) ([]*model.Service, error) {
	c.services.Add(1)
	return c.ContentStore.ListServices(ctx, all)
}

func TestContentLoader_CachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	st := &countingStore{ContentStore: tester.Store(t)}
	require.NoError(t, st.SaveService(ctx, &model.Service{Title: "Purity testing", Active: true}))

	ttl := 50 * time.Millisecond
	loader := NewContentLoader(st, cache.NewMemory(ttl), ttl)

	first, err := loader.LoadServices(ctx)
	require.NoError(t, err)
	second, err := loader.LoadServices(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), st.services.Load())
	require.Len(t, second, len(first))
	assert.Equal(t, first[0].Title, second[0].Title)

	time.Sleep(2 * ttl)
	_, err = loader.LoadServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), st.services.Load())
}

func TestContentLoader_DefaultTTL(t *testing.T) {
	loader := NewContentLoader(tester.Store(t), cache.NewMemory(time.Minute), 0)
	assert.Equal(t, 5*time.Minute, loader.ttl)
}

func TestContentService_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	st := &countingStore{ContentStore: tester.Store(t)}
	loader := NewContentLoader(st, cache.NewMemory(time.Minute), time.Minute)
	cms := NewContentService(st, loader)

	services, err := loader.LoadServices(ctx)
	require.NoError(t, err)
	assert.Empty(t, services)

	_, err = cms.SaveService(ctx, &model.Service{Title: "Potency", Active: true})
	require.NoError(t, err)

	services, err = loader.LoadServices(ctx)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "Potency", services[0].Title)
	assert.Equal(t, int32(2), st.services.Load())

	_, err = cms.SaveService(ctx, &model.Service{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestContentLoader_LoadPage(t *testing.T) {
	ctx := context.Background()
	st := tester.Store(t)
	loader := NewContentLoader(st, cache.NewMemory(time.Minute), time.Minute)
	cms := NewContentService(st, loader)

	_, err := cms.SetSiteSetting(ctx, "phone", "555-0100")
	require.NoError(t, err)
	_, err = cms.SetPageContent(ctx, &model.PageContent{Page: "home", Section: "intro", Key: "title", Value: "Independent testing"})
	require.NoError(t, err)

	bundle, err := loader.LoadPage(ctx, "home")
	require.NoError(t, err)
	assert.Nil(t, bundle.Hero)
	assert.Equal(t, "Independent testing", bundle.Content["intro"]["title"])
	assert.Equal(t, "555-0100", bundle.Settings["phone"])

	_, err = cms.SaveHeroSection(ctx, &model.HeroSection{Page: "home", Title: "Trusted results", Active: true})
	require.NoError(t, err)

	bundle, err = loader.LoadPage(ctx, "home")
	require.NoError(t, err)
	require.NotNil(t, bundle.Hero)
	assert.Equal(t, "Trusted results", bundle.Hero.Title)
}

func TestContentService_BlogPublishing(t *testing.T) {
	ctx := context.Background()
	st := tester.Store(t)
	loader := NewContentLoader(st, cache.NewMemory(time.Minute), time.Minute)
	cms := NewContentService(st, loader)

	post, err := cms.SaveBlogPost(ctx, &model.BlogPost{Slug: "why-test", Title: "Why test", Published: true})
	require.NoError(t, err)
	assert.NotNil(t, post.PublishedAt)

	_, err = cms.SaveBlogPost(ctx, &model.BlogPost{Slug: "draft", Title: "Draft"})
	require.NoError(t, err)

	posts, err := loader.LoadBlogPosts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "why-test", posts[0].Slug)

	all, err := cms.ListBlogPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
