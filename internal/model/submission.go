package model

import "time"

type ContactSubmission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null" json:"email"`
	Phone     string    `json:"phone"`
	Subject   string    `json:"subject"`
	Message   string    `gorm:"not null" json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func (ContactSubmission) TableName() string {
	return "contact_submissions"
}

// SampleSubmission is a request from a client to send a sample for testing.
type SampleSubmission struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"not null" json:"email"`
	Company      string    `json:"company"`
	Compound     string    `gorm:"not null" json:"compound"`
	AnalysisType string    `gorm:"column:analysis_type" json:"analysisType"`
	Quantity     int       `json:"quantity"`
	Notes        string    `json:"notes"`
	Status       string    `gorm:"not null;default:pending" json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (SampleSubmission) TableName() string {
	return "sample_submissions"
}

type NewsletterSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"not null;uniqueIndex" json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func (NewsletterSubscription) TableName() string {
	return "newsletter_subscriptions"
}
