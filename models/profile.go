package models

import (
	"strings"
	"time"

	"github.com/unilink-net/unilink/internal/snowflake"
	"gorm.io/gorm"
)

// A Profile is the alumni profile attached to a User. The public subset of
// its fields is what the directory and profile endpoints return.
type Profile struct {
	snowflake.ID   `gorm:"primarykey;autoIncrement:false"`
	UpdatedAt      time.Time
	UserID         snowflake.ID `gorm:"not null;uniqueIndex"`
	User           *User        `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	University     string       `gorm:"size:255"`
	GraduationYear int
	Field          string `gorm:"size:255"`
	Headline       string `gorm:"size:255"`
	Location       string `gorm:"size:255"`
	Bio            string
	Public         bool `gorm:"not null;default:true"`
}

type Profiles struct {
	db *gorm.DB
}

func NewProfiles(db *gorm.DB) *Profiles {
	return &Profiles{db: db}
}

// FindByUserID returns the profile belonging to the given user.
func (p *Profiles) FindByUserID(userID snowflake.ID) (*Profile, error) {
	var profile Profile
	if err := p.db.Joins("User").Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// ProfileSearch holds the directory search filters. Zero values mean the
// filter is not applied.
type ProfileSearch struct {
	University     string
	GraduationYear int
	Field          string
	Limit          int
}

// DefaultSearchLimit caps directory results when the caller does not supply
// a limit.
const DefaultSearchLimit = 50

// Search returns public profiles matching the given filters. The university
// and field filters are case-insensitive substring matches, graduation year
// is an exact match.
func (p *Profiles) Search(q ProfileSearch) ([]Profile, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	db := p.db.Joins("User").Where("public = ?", true)
	if q.University != "" {
		db = db.Where("LOWER(university) LIKE ?", "%"+strings.ToLower(q.University)+"%")
	}
	if q.GraduationYear != 0 {
		db = db.Where("graduation_year = ?", q.GraduationYear)
	}
	if q.Field != "" {
		db = db.Where("LOWER(field) LIKE ?", "%"+strings.ToLower(q.Field)+"%")
	}
	var profiles []Profile
	if err := db.Limit(limit).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}
