package models

import (
	"time"

	"github.com/unilink-net/unilink/internal/snowflake"
	"gorm.io/gorm"
)

// A User is a registered member of the UniLink network.
// A User has at most one Profile.
type User struct {
	snowflake.ID      `gorm:"primarykey;autoIncrement:false"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Email             string `gorm:"size:64;not null;uniqueIndex"`
	EncryptedPassword []byte `gorm:"size:60;not null"`
	DisplayName       string `gorm:"size:64;not null"`
	Role              string `gorm:"size:16;not null;default:'alumni'"`
	Profile           *Profile
}

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// FindByEmail returns the user with the given email address.
func (u *Users) FindByEmail(email string) (*User, error) {
	var user User
	if err := u.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *Users) Find(id snowflake.ID) (*User, error) {
	var user User
	if err := u.db.Preload("Profile").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
