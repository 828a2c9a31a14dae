package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// analysis categories accepted on a COA
const (
	AnalysisPurity       = "purity"
	AnalysisPotency      = "potency"
	AnalysisIdentity     = "identity"
	AnalysisContaminants = "contaminants"
	AnalysisFullPanel    = "full_panel"
)

// COA lifecycle states
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusPublished  = "published"
)

// AnalysisTypes lists the accepted analysis categories in display order.
var AnalysisTypes = []string{AnalysisPurity, AnalysisPotency, AnalysisIdentity, AnalysisContaminants, AnalysisFullPanel}

// Statuses lists the accepted COA states in lifecycle order.
var Statuses = []string{StatusPending, StatusInProgress, StatusCompleted, StatusPublished}

// COA is a certificate of analysis row.
//
// ID never changes once assigned. Code is the human facing identity
// (PREFIX-YEAR-SEQ) and may be edited, so the stored file is tracked by
// FileKey rather than reconstructed from the code.
type COA struct {
	ID           string   `gorm:"primaryKey;type:uuid;not null"`
	Code         string   `gorm:"column:coa_id;uniqueIndex;not null"`
	ClientName   string   `gorm:"column:client_name;not null"`
	Compound     string   `gorm:"column:compound;not null"`
	AnalysisType string   `gorm:"column:analysis_type"`
	TestDate     string   `gorm:"column:test_date"`
	Status       string   `gorm:"column:status;not null;default:pending"`
	Purity       *float64 `gorm:"column:purity"`
	Result       *string  `gorm:"column:result"`
	Notes        string   `gorm:"column:notes"`
	FileName     string   `gorm:"column:file_name"`
	FileSize     int64    `gorm:"column:file_size"`
	FileURL      string   `gorm:"column:file_url"`
	FileKey      string   `gorm:"column:file_key;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (COA) TableName() string {
	return "coas"
}

func (c *COA) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	return nil
}

// HasFile reports whether the row points at a stored object.
func (c *COA) HasFile() bool {
	return c.FileKey != "" || c.FileURL != ""
}

// ClearFile drops every file reference from the row.
func (c *COA) ClearFile() {
	c.FileName = ""
	c.FileSize = 0
	c.FileURL = ""
	c.FileKey = ""
}

// ValidAnalysisType reports whether t is empty or one of AnalysisTypes.
func ValidAnalysisType(t string) bool {
	if t == "" {
		return true
	}
	for _, v := range AnalysisTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is empty or one of Statuses.
func ValidStatus(s string) bool {
	if s == "" {
		return true
	}
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}
