package models

import (
	"time"

	"github.com/unilink-net/unilink/internal/snowflake"
	"gorm.io/gorm"
)

// A UsageLog row records one authenticated API call. Rows are append-only;
// writing one is always best effort and never fails the request it records.
type UsageLog struct {
	ID            uint32 `gorm:"primarykey"`
	CreatedAt     time.Time
	TokenID       snowflake.ID `gorm:"index"`
	ApplicationID snowflake.ID `gorm:"index"`
	Endpoint      string       `gorm:"size:255;not null"`
	Method        string       `gorm:"size:8;not null"`
	StatusCode    int          `gorm:"not null"`
	RemoteAddr    string       `gorm:"size:64"`
	UserAgent     string       `gorm:"size:255"`
}

type UsageLogs struct {
	db *gorm.DB
}

func NewUsageLogs(db *gorm.DB) *UsageLogs {
	return &UsageLogs{db: db}
}

func (u *UsageLogs) Append(entry *UsageLog) error {
	return u.db.Create(entry).Error
}
