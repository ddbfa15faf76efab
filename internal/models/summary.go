package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// UintSlice is a custom type for storing uint arrays as JSON
type UintSlice []uint

func (s UintSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *UintSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return nil
}

// Summary records a generated digest and the articles it was built from
type Summary struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	ArticleIDs UintSlice `gorm:"type:json;not null" json:"article_ids"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
