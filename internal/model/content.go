package model

import "time"

// SiteSetting is a single key/value pair of site wide copy (phone, email, tagline...).
type SiteSetting struct {
	Key       string    `gorm:"primaryKey;column:setting_key" json:"key"`
	Value     string    `gorm:"column:value" json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (SiteSetting) TableName() string {
	return "site_settings"
}

// PageContent is one text slot of a public page, addressed by page/section/key.
type PageContent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Page      string    `gorm:"not null;uniqueIndex:idx_page_content_slot" json:"page"`
	Section   string    `gorm:"not null;uniqueIndex:idx_page_content_slot" json:"section"`
	Key       string    `gorm:"column:slot_key;not null;uniqueIndex:idx_page_content_slot" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (PageContent) TableName() string {
	return "page_content"
}

type HeroSection struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Page      string    `gorm:"not null;uniqueIndex" json:"page"`
	Title     string    `gorm:"not null" json:"title"`
	Subtitle  string    `json:"subtitle"`
	CTAText   string    `gorm:"column:cta_text" json:"ctaText"`
	CTALink   string    `gorm:"column:cta_link" json:"ctaLink"`
	ImageURL  string    `gorm:"column:image_url" json:"imageUrl"`
	Active    bool      `gorm:"not null" json:"active"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (HeroSection) TableName() string {
	return "hero_sections"
}

// Service is a lab service offering listed on the services page.
type Service struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Icon        string    `json:"icon"`
	SortOrder   int       `gorm:"not null;default:0" json:"sortOrder"`
	Active      bool      `gorm:"not null" json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Service) TableName() string {
	return "services"
}

type Testimonial struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Author    string    `gorm:"not null" json:"author"`
	Company   string    `json:"company"`
	Quote     string    `gorm:"not null" json:"quote"`
	Rating    int       `gorm:"not null;default:5" json:"rating"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Testimonial) TableName() string {
	return "testimonials"
}

type BlogPost struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Slug        string     `gorm:"not null;uniqueIndex" json:"slug"`
	Title       string     `gorm:"not null" json:"title"`
	Excerpt     string     `json:"excerpt"`
	Body        string     `json:"body"`
	CoverURL    string     `gorm:"column:cover_url" json:"coverUrl"`
	Published   bool       `gorm:"not null" json:"published"`
	PublishedAt *time.Time `json:"publishedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (BlogPost) TableName() string {
	return "blog_posts"
}
