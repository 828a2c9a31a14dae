package store_test

import (
	"context"
	"testing"

	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/store"
	"github.com/emrgen/coa/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGormStore(t *testing.T) {
	backends := map[string]func(t *testing.T) *gorm.DB{
		"sqlite":   func(t *testing.T) *gorm.DB { return tester.TestDB(t) },
		"postgres": func(t *testing.T) *gorm.DB { return tester.PostgresDB(t) },
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			db := open(t)
			t.Run("coa", func(t *testing.T) { testCOAs(t, store.NewGormStore(db)) })
			t.Run("content", func(t *testing.T) { testContent(t, store.NewGormStore(db)) })
			t.Run("submissions", func(t *testing.T) { testSubmissions(t, store.NewGormStore(db)) })
		})
	}
}

func testCOAs(t *testing.T, s store.Store) {
	ctx := context.Background()

	first := &model.COA{Code: "ZT-2024-001", ClientName: "Gold Lab Supply", Compound: "BPC-157", AnalysisType: model.AnalysisPurity}
	require.NoError(t, s.CreateCOA(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, model.StatusPending, first.Status)

	err := s.CreateCOA(ctx, &model.COA{Code: "ZT-2024-001", ClientName: "Other", Compound: "TB-500"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	second := &model.COA{Code: "ZT-2024-002", ClientName: "Northwind_Labs", Compound: "TB-500", AnalysisType: model.AnalysisPotency}
	require.NoError(t, s.CreateCOA(ctx, second))

	got, err := s.GetCOA(ctx, "ZT-2024-001")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = s.GetCOA(ctx, "ZT-2024-404")
	assert.ErrorIs(t, err, store.ErrNotFound)

	found, err := s.SearchCOAs(ctx, "bpc")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ZT-2024-001", found[0].Code)

	found, err = s.SearchCOAs(ctx, "POTENCY")
	require.NoError(t, err)
	require.Len(t, found, 1)

	// underscore is matched literally
	found, err = s.SearchCOAs(ctx, "d_l")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ZT-2024-002", found[0].Code)

	codes, err := s.ListCOACodes(ctx, "ZT-2024-")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ZT-2024-001", "ZT-2024-002"}, codes)

	got.Code = "ZT-2024-010"
	got.FileKey = "coas/ZT-2024-001_1.pdf"
	require.NoError(t, s.UpdateCOA(ctx, got))

	_, err = s.GetCOA(ctx, "ZT-2024-001")
	assert.ErrorIs(t, err, store.ErrNotFound)
	renamed, err := s.GetCOAByRowID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "ZT-2024-010", renamed.Code)
	assert.Equal(t, "coas/ZT-2024-001_1.pdf", renamed.FileKey)

	renamed.Code = "ZT-2024-002"
	assert.ErrorIs(t, s.UpdateCOA(ctx, renamed), store.ErrDuplicate)

	all, err := s.ListCOAs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeleteCOA(ctx, first.ID))
	assert.ErrorIs(t, s.DeleteCOA(ctx, first.ID), store.ErrNotFound)
}

func testContent(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.UpsertSiteSetting(ctx, &model.SiteSetting{Key: "phone", Value: "555-0100"}))
	require.NoError(t, s.UpsertSiteSetting(ctx, &model.SiteSetting{Key: "phone", Value: "555-0199"}))
	settings, err := s.ListSiteSettings(ctx)
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.Equal(t, "555-0199", settings[0].Value)

	slot := &model.PageContent{Page: "home", Section: "intro", Key: "title", Value: "Lab testing"}
	require.NoError(t, s.UpsertPageContent(ctx, slot))
	require.NoError(t, s.UpsertPageContent(ctx, &model.PageContent{Page: "home", Section: "intro", Key: "title", Value: "Independent lab testing"}))
	content, err := s.ListPageContent(ctx, "home")
	require.NoError(t, err)
	require.Len(t, content, 1)
	assert.Equal(t, "Independent lab testing", content[0].Value)

	require.NoError(t, s.SaveService(ctx, &model.Service{Title: "Purity", SortOrder: 2, Active: true}))
	require.NoError(t, s.SaveService(ctx, &model.Service{Title: "Potency", SortOrder: 1, Active: true}))
	require.NoError(t, s.SaveService(ctx, &model.Service{Title: "Retired", SortOrder: 0, Active: false}))

	services, err := s.ListServices(ctx, false)
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "Potency", services[0].Title)

	services, err = s.ListServices(ctx, true)
	require.NoError(t, err)
	assert.Len(t, services, 3)

	require.NoError(t, s.SaveBlogPost(ctx, &model.BlogPost{Slug: "hello", Title: "Hello", Published: true}))
	require.NoError(t, s.SaveBlogPost(ctx, &model.BlogPost{Slug: "draft", Title: "Draft"}))
	posts, err := s.ListBlogPosts(ctx, true, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello", posts[0].Slug)

	err = s.SaveBlogPost(ctx, &model.BlogPost{Slug: "hello", Title: "Again"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	assert.ErrorIs(t, s.DeleteService(ctx, 9999), store.ErrNotFound)
}

func testSubmissions(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.CreateNewsletterSubscription(ctx, &model.NewsletterSubscription{Email: "a@example.com"}))
	err := s.CreateNewsletterSubscription(ctx, &model.NewsletterSubscription{Email: "a@example.com"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	require.NoError(t, s.CreateContactSubmission(ctx, &model.ContactSubmission{Name: "Ada", Email: "ada@example.com", Message: "hi"}))
	contacts, err := s.ListContactSubmissions(ctx)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}

func TestGormStore_MissingTable(t *testing.T) {
	db := tester.TestDB(t)
	require.NoError(t, db.Migrator().DropTable(&model.COA{}))

	s := store.NewGormStore(db)
	assert.False(t, s.HasTable("coas"))

	_, err := s.ListCOAs(context.Background())
	assert.ErrorIs(t, err, store.ErrMissingTable)
}
