package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/unilink-net/unilink/internal/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ErrTokenExpired is returned when a token's expiry has passed.
var ErrTokenExpired = errors.New("token has expired")

// ErrTokenRevoked is returned when a token has been revoked.
var ErrTokenRevoked = errors.New("token has been revoked")

// A Token is an access token for an Application.
// A Token belongs to a User, the application's owner at issuance.
// Only the one-way hash of the token is stored; the raw value is returned
// once at issuance and never persisted. Tokens are revoked, never deleted.
type Token struct {
	snowflake.ID  `gorm:"primarykey;autoIncrement:false"`
	CreatedAt     time.Time
	ApplicationID snowflake.ID `gorm:"not null;index"`
	Application   *Application `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	UserID        snowflake.ID `gorm:"not null;index"`
	User          *User        `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	TokenHash     string       `gorm:"size:64;not null;uniqueIndex"`
	TokenType     `gorm:"not null"`
	Scope         string `gorm:"size:255;not null"`
	ExpiresAt     *time.Time
	LastUsedAt    *time.Time
	Revoked       bool `gorm:"not null;default:false"`
}

// HasScope reports whether the token grants the given scope.
func (t *Token) HasScope(scope string) bool {
	for _, s := range strings.Fields(t.Scope) {
		if s == scope {
			return true
		}
	}
	return false
}

type TokenType string

func (TokenType) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql", "postgres":
		return "enum('Bearer')"
	case "sqlite":
		return "TEXT"
	default:
		return ""
	}
}

// HashToken returns the hex sha256 digest of a raw token, the form in which
// tokens are stored and looked up.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

type Tokens struct {
	db *gorm.DB
}

func NewTokens(db *gorm.DB) *Tokens {
	return &Tokens{db: db}
}

// Issue creates a token carrying the application's full scope set, expiring
// after ttl. It returns the stored row and the raw token value, which is not
// retained anywhere else.
func (t *Tokens) Issue(app *Application, ttl time.Duration) (*Token, string, error) {
	raw, err := generateToken()
	if err != nil {
		return nil, "", err
	}
	expires := time.Now().Add(ttl)
	token := &Token{
		ID:            snowflake.Now(),
		ApplicationID: app.ID,
		UserID:        app.OwnerID,
		TokenHash:     HashToken(raw),
		TokenType:     "Bearer",
		Scope:         app.Scopes,
		ExpiresAt:     &expires,
	}
	if err := t.db.Create(token).Error; err != nil {
		return nil, "", err
	}
	return token, raw, nil
}

// FindByRaw returns the token whose stored hash matches the raw value,
// without checking revocation or expiry.
func (t *Tokens) FindByRaw(raw string) (*Token, error) {
	var token Token
	if err := t.db.Joins("Application").Joins("User").First(&token, "token_hash = ?", HashToken(raw)).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// Authenticate resolves a raw bearer token to its stored row, rejecting
// revoked and expired tokens regardless of hash match.
func (t *Tokens) Authenticate(raw string) (*Token, error) {
	token, err := t.FindByRaw(raw)
	if err != nil {
		return nil, err
	}
	if token.Revoked {
		return nil, ErrTokenRevoked
	}
	if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}
	return token, nil
}

// Touch records that the token was just used. Failures are the caller's to
// ignore; losing a last-used update never fails a request.
func (t *Tokens) Touch(token *Token) error {
	return t.db.Model(token).UpdateColumn("last_used_at", time.Now()).Error
}

// Revoke marks the token revoked. The row is kept for the audit trail.
func (t *Tokens) Revoke(token *Token) error {
	return t.db.Model(token).UpdateColumn("revoked", true).Error
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "ult_" + hex.EncodeToString(buf), nil
}
