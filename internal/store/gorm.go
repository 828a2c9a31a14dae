package store

import (
	"context"
	"strings"

	"github.com/emrgen/coa/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func (g *GormStore) CreateCOA(ctx context.Context, coa *model.COA) error {
	return translate(g.db.WithContext(ctx).Create(coa).Error)
}

func (g *GormStore) GetCOA(ctx context.Context, code string) (*model.COA, error) {
	var coa model.COA
	err := g.db.WithContext(ctx).Where("coa_id = ?", code).First(&coa).Error
	if err != nil {
		return nil, translate(err)
	}
	return &coa, nil
}

func (g *GormStore) GetCOAByRowID(ctx context.Context, id string) (*model.COA, error) {
	var coa model.COA
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&coa).Error
	if err != nil {
		return nil, translate(err)
	}
	return &coa, nil
}

func (g *GormStore) ListCOAs(ctx context.Context) ([]*model.COA, error) {
	coas := make([]*model.COA, 0)
	err := g.db.WithContext(ctx).Order("created_at desc").Find(&coas).Error
	return coas, translate(err)
}

// SearchCOAs lowers both sides instead of using ILIKE so the query runs on sqlite too.
func (g *GormStore) SearchCOAs(ctx context.Context, query string) ([]*model.COA, error) {
	coas := make([]*model.COA, 0)
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	err := g.db.WithContext(ctx).
		Where("LOWER(coa_id) LIKE ? ESCAPE '\\'", pattern).
		Or("LOWER(client_name) LIKE ? ESCAPE '\\'", pattern).
		Or("LOWER(compound) LIKE ? ESCAPE '\\'", pattern).
		Or("LOWER(analysis_type) LIKE ? ESCAPE '\\'", pattern).
		Order("created_at desc").
		Find(&coas).Error
	return coas, translate(err)
}

func (g *GormStore) ListCOACodes(ctx context.Context, prefix string) ([]string, error) {
	codes := make([]string, 0)
	err := g.db.WithContext(ctx).Model(&model.COA{}).
		Where("coa_id LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Pluck("coa_id", &codes).Error
	return codes, translate(err)
}

func (g *GormStore) UpdateCOA(ctx context.Context, coa *model.COA) error {
	res := g.db.WithContext(ctx).Model(&model.COA{}).
		Where("id = ?", coa.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(coa)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormStore) DeleteCOA(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Where("id = ?", id).Delete(&model.COA{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormStore) ListSiteSettings(ctx context.Context) ([]*model.SiteSetting, error) {
	settings := make([]*model.SiteSetting, 0)
	err := g.db.WithContext(ctx).Order("setting_key").Find(&settings).Error
	return settings, translate(err)
}

func (g *GormStore) UpsertSiteSetting(ctx context.Context, setting *model.SiteSetting) error {
	return translate(g.db.WithContext(ctx).Save(setting).Error)
}

func (g *GormStore) ListPageContent(ctx context.Context, page string) ([]*model.PageContent, error) {
	content := make([]*model.PageContent, 0)
	err := g.db.WithContext(ctx).Where("page = ?", page).Order("section, slot_key").Find(&content).Error
	return content, translate(err)
}

func (g *GormStore) UpsertPageContent(ctx context.Context, content *model.PageContent) error {
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "page"}, {Name: "section"}, {Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(content).Error
	return translate(err)
}

func (g *GormStore) GetHeroSection(ctx context.Context, page string) (*model.HeroSection, error) {
	var hero model.HeroSection
	err := g.db.WithContext(ctx).Where("page = ? AND active = ?", page, true).First(&hero).Error
	if err != nil {
		return nil, translate(err)
	}
	return &hero, nil
}

func (g *GormStore) ListHeroSections(ctx context.Context) ([]*model.HeroSection, error) {
	heroes := make([]*model.HeroSection, 0)
	err := g.db.WithContext(ctx).Order("page").Find(&heroes).Error
	return heroes, translate(err)
}

func (g *GormStore) SaveHeroSection(ctx context.Context, hero *model.HeroSection) error {
	return translate(g.db.WithContext(ctx).Save(hero).Error)
}

func (g *GormStore) DeleteHeroSection(ctx context.Context, id uint) error {
	return g.deleteByID(ctx, &model.HeroSection{}, id)
}

func (g *GormStore) ListServices(ctx context.Context, all bool) ([]*model.Service, error) {
	services := make([]*model.Service, 0)
	q := g.db.WithContext(ctx).Order("sort_order, id")
	if !all {
		q = q.Where("active = ?", true)
	}
	err := q.Find(&services).Error
	return services, translate(err)
}

func (g *GormStore) SaveService(ctx context.Context, service *model.Service) error {
	return translate(g.db.WithContext(ctx).Save(service).Error)
}

func (g *GormStore) DeleteService(ctx context.Context, id uint) error {
	return g.deleteByID(ctx, &model.Service{}, id)
}

func (g *GormStore) ListTestimonials(ctx context.Context, all bool) ([]*model.Testimonial, error) {
	testimonials := make([]*model.Testimonial, 0)
	q := g.db.WithContext(ctx).Order("created_at desc")
	if !all {
		q = q.Where("active = ?", true)
	}
	err := q.Find(&testimonials).Error
	return testimonials, translate(err)
}

func (g *GormStore) SaveTestimonial(ctx context.Context, testimonial *model.Testimonial) error {
	return translate(g.db.WithContext(ctx).Save(testimonial).Error)
}

func (g *GormStore) DeleteTestimonial(ctx context.Context, id uint) error {
	return g.deleteByID(ctx, &model.Testimonial{}, id)
}

func (g *GormStore) ListBlogPosts(ctx context.Context, publishedOnly bool, limit int) ([]*model.BlogPost, error) {
	posts := make([]*model.BlogPost, 0)
	q := g.db.WithContext(ctx).Order("created_at desc")
	if publishedOnly {
		q = q.Where("published = ?", true)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&posts).Error
	return posts, translate(err)
}

func (g *GormStore) GetBlogPost(ctx context.Context, slug string) (*model.BlogPost, error) {
	var post model.BlogPost
	err := g.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error
	if err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (g *GormStore) SaveBlogPost(ctx context.Context, post *model.BlogPost) error {
	return translate(g.db.WithContext(ctx).Save(post).Error)
}

func (g *GormStore) DeleteBlogPost(ctx context.Context, id uint) error {
	return g.deleteByID(ctx, &model.BlogPost{}, id)
}

func (g *GormStore) CreateContactSubmission(ctx context.Context, s *model.ContactSubmission) error {
	return translate(g.db.WithContext(ctx).Create(s).Error)
}

func (g *GormStore) ListContactSubmissions(ctx context.Context) ([]*model.ContactSubmission, error) {
	subs := make([]*model.ContactSubmission, 0)
	err := g.db.WithContext(ctx).Order("created_at desc").Find(&subs).Error
	return subs, translate(err)
}

func (g *GormStore) CreateSampleSubmission(ctx context.Context, s *model.SampleSubmission) error {
	return translate(g.db.WithContext(ctx).Create(s).Error)
}

func (g *GormStore) ListSampleSubmissions(ctx context.Context) ([]*model.SampleSubmission, error) {
	subs := make([]*model.SampleSubmission, 0)
	err := g.db.WithContext(ctx).Order("created_at desc").Find(&subs).Error
	return subs, translate(err)
}

func (g *GormStore) CreateNewsletterSubscription(ctx context.Context, s *model.NewsletterSubscription) error {
	return translate(g.db.WithContext(ctx).Create(s).Error)
}

func (g *GormStore) ListNewsletterSubscriptions(ctx context.Context) ([]*model.NewsletterSubscription, error) {
	subs := make([]*model.NewsletterSubscription, 0)
	err := g.db.WithContext(ctx).Order("created_at desc").Find(&subs).Error
	return subs, translate(err)
}

func (g *GormStore) CreateMedia(ctx context.Context, m *model.Media) error {
	return translate(g.db.WithContext(ctx).Create(m).Error)
}

func (g *GormStore) GetMedia(ctx context.Context, id string) (*model.Media, error) {
	var m model.Media
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (g *GormStore) ListMedia(ctx context.Context) ([]*model.Media, error) {
	media := make([]*model.Media, 0)
	err := g.db.WithContext(ctx).Order("created_at desc").Find(&media).Error
	return media, translate(err)
}

func (g *GormStore) DeleteMedia(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Media{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) HasTable(name string) bool {
	return g.db.Migrator().HasTable(name)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}

func (g *GormStore) deleteByID(ctx context.Context, value any, id uint) error {
	res := g.db.WithContext(ctx).Delete(value, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		logrus.Debugf("delete %T %d: no rows", value, id)
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
