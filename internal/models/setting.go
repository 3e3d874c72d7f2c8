package models

import "time"

// Setting is a single key/value row. Secret values are stored as ciphertext
// tokens; the table itself is encryption-agnostic.
type Setting struct {
	Key       string    `gorm:"column:key;primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string { return "settings" }
