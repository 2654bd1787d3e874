package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/unilink-net/unilink/internal/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// A Credential is an academic credential held in a user's wallet.
// A Credential belongs to a User. Verification is a read-only presentation
// action; it never mutates the record.
type Credential struct {
	snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	UserID       snowflake.ID   `gorm:"not null;index"`
	User         *User          `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	Type         CredentialType `gorm:"not null"`
	Title        string         `gorm:"size:255;not null"`
	Issuer       string         `gorm:"size:255;not null"`
	IssuedOn     time.Time
	// ContentHash fingerprints the credential content at issuance. It is
	// only shown to the credential's owner.
	ContentHash string `gorm:"size:64;not null"`
	Status      string `gorm:"size:16;not null;default:'issued'"`
}

type CredentialType string

func (CredentialType) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql", "postgres":
		return "enum('degree','certificate','badge','transcript')"
	case "sqlite":
		return "TEXT"
	default:
		return ""
	}
}

// CredentialHash fingerprints the fields that define a credential's content.
func CredentialHash(userID snowflake.ID, typ CredentialType, title, issuer string, issuedOn time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%s|%s", userID, typ, title, issuer, issuedOn.UTC().Format("2006-01-02"))))
	return hex.EncodeToString(sum[:])
}

type Credentials struct {
	db *gorm.DB
}

func NewCredentials(db *gorm.DB) *Credentials {
	return &Credentials{db: db}
}

// Find returns the credential with the given id.
func (c *Credentials) Find(id snowflake.ID) (*Credential, error) {
	var credential Credential
	if err := c.db.First(&credential, id).Error; err != nil {
		return nil, err
	}
	return &credential, nil
}

// FindByUser returns all credentials owned by the given user.
func (c *Credentials) FindByUser(userID snowflake.ID) ([]Credential, error) {
	var credentials []Credential
	if err := c.db.Where("user_id = ?", userID).Find(&credentials).Error; err != nil {
		return nil, err
	}
	return credentials, nil
}
