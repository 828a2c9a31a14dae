package store

import (
	"context"

	"github.com/emrgen/coa/internal/model"
)

type Store interface {
	COAStore
	ContentStore
	SubmissionStore
	MediaStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
	// HasTable reports whether the named table exists.
	HasTable(name string) bool
}

type COAStore interface {
	// CreateCOA inserts a new COA, failing with ErrDuplicate when the code is taken.
	CreateCOA(ctx context.Context, coa *model.COA) error
	// GetCOA retrieves a COA by its code.
	GetCOA(ctx context.Context, code string) (*model.COA, error)
	// GetCOAByRowID retrieves a COA by its immutable row id.
	GetCOAByRowID(ctx context.Context, id string) (*model.COA, error)
	// ListCOAs retrieves every COA, newest first.
	ListCOAs(ctx context.Context) ([]*model.COA, error)
	// SearchCOAs matches query case-insensitively against code, client, compound and analysis type.
	SearchCOAs(ctx context.Context, query string) ([]*model.COA, error)
	// ListCOACodes retrieves the codes starting with prefix.
	ListCOACodes(ctx context.Context, prefix string) ([]string, error)
	// UpdateCOA overwrites every column of the row identified by coa.ID.
	UpdateCOA(ctx context.Context, coa *model.COA) error
	// DeleteCOA deletes a COA by its row id.
	DeleteCOA(ctx context.Context, id string) error
}

type ContentStore interface {
	ListSiteSettings(ctx context.Context) ([]*model.SiteSetting, error)
	UpsertSiteSetting(ctx context.Context, setting *model.SiteSetting) error
	ListPageContent(ctx context.Context, page string) ([]*model.PageContent, error)
	UpsertPageContent(ctx context.Context, content *model.PageContent) error
	GetHeroSection(ctx context.Context, page string) (*model.HeroSection, error)
	ListHeroSections(ctx context.Context) ([]*model.HeroSection, error)
	SaveHeroSection(ctx context.Context, hero *model.HeroSection) error
	DeleteHeroSection(ctx context.Context, id uint) error
	// ListServices retrieves services ordered by sort order; inactive ones only when all is set.
	ListServices(ctx context.Context, all bool) ([]*model.Service, error)
	SaveService(ctx context.Context, service *model.Service) error
	DeleteService(ctx context.Context, id uint) error
	ListTestimonials(ctx context.Context, all bool) ([]*model.Testimonial, error)
	SaveTestimonial(ctx context.Context, testimonial *model.Testimonial) error
	DeleteTestimonial(ctx context.Context, id uint) error
	// ListBlogPosts retrieves posts newest first; limit <= 0 means no limit.
	ListBlogPosts(ctx context.Context, publishedOnly bool, limit int) ([]*model.BlogPost, error)
	GetBlogPost(ctx context.Context, slug string) (*model.BlogPost, error)
	SaveBlogPost(ctx context.Context, post *model.BlogPost) error
	DeleteBlogPost(ctx context.Context, id uint) error
}

type SubmissionStore interface {
	CreateContactSubmission(ctx context.Context, s *model.ContactSubmission) error
	ListContactSubmissions(ctx context.Context) ([]*model.ContactSubmission, error)
	CreateSampleSubmission(ctx context.Context, s *model.SampleSubmission) error
	ListSampleSubmissions(ctx context.Context) ([]*model.SampleSubmission, error)
	CreateNewsletterSubscription(ctx context.Context, s *model.NewsletterSubscription) error
	ListNewsletterSubscriptions(ctx context.Context) ([]*model.NewsletterSubscription, error)
}

type MediaStore interface {
	CreateMedia(ctx context.Context, m *model.Media) error
	GetMedia(ctx context.Context, id string) (*model.Media, error)
	ListMedia(ctx context.Context) ([]*model.Media, error)
	DeleteMedia(ctx context.Context, id string) error
}
