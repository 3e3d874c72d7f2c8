package models

import "time"

// Template holds the extracted text of an uploaded PDF. Immutable after
// creation except for deletion.
type Template struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Filename  string    `gorm:"size:500;not null" json:"filename"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Template) TableName() string { return "templates" }

// TemplateSummary omits the content for listings.
type TemplateSummary struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}
