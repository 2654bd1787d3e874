package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/unilink-net/unilink/internal/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ErrValidation is wrapped by errors reporting malformed input.
var ErrValidation = errors.New("validation failed")

// ErrNotOwner is returned when a caller tries to mutate an application they
// do not own.
var ErrNotOwner = errors.New("caller is not the application owner")

// An Application is a registered API client application.
// An Application belongs to a User, its owner.
// Applications are deactivated, never deleted.
type Application struct {
	snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	OwnerID      snowflake.ID `gorm:"not null;index"`
	Owner        *User        `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	Name         string       `gorm:"size:255;not null"`
	Description  string       `gorm:"size:255"`
	ClientID     string       `gorm:"size:64;not null;uniqueIndex"`
	ClientSecret string       `gorm:"size:64;not null"`
	// RedirectURIs and Scopes are space separated lists.
	RedirectURIs string          `gorm:"size:255;not null;default:''"`
	Scopes       string          `gorm:"size:255;not null;default:''"`
	Type         ApplicationType `gorm:"not null"`
	Active       bool            `gorm:"not null;default:true"`
	// RateLimit is the number of authenticated requests the application may
	// make per hour. Zero disables throttling.
	RateLimit int `gorm:"not null;default:1000"`
}

// ScopeList returns the application's granted scopes as a slice.
func (a *Application) ScopeList() []string {
	return strings.Fields(a.Scopes)
}

type ApplicationType string

func (ApplicationType) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql", "postgres":
		return "enum('web','mobile','server')"
	case "sqlite":
		return "TEXT"
	default:
		return ""
	}
}

func validApplicationType(t ApplicationType) bool {
	switch t {
	case "web", "mobile", "server":
		return true
	}
	return false
}

type Applications struct {
	db *gorm.DB
}

func NewApplications(db *gorm.DB) *Applications {
	return &Applications{db: db}
}

// Create registers a new application for the given owner, generating a fresh
// client id and client secret.
func (a *Applications) Create(ownerID snowflake.ID, name, description string, redirectURIs, scopes []string, typ ApplicationType, rateLimit int) (*Application, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !validApplicationType(typ) {
		return nil, fmt.Errorf("%w: unknown application type %q", ErrValidation, typ)
	}
	app := &Application{
		ID:           snowflake.Now(),
		OwnerID:      ownerID,
		Name:         name,
		Description:  description,
		ClientID:     "ul_" + uuid.New().String(),
		ClientSecret: "uls_" + uuid.New().String(),
		RedirectURIs: strings.Join(redirectURIs, " "),
		Scopes:       strings.Join(scopes, " "),
		Type:         typ,
		Active:       true,
		RateLimit:    rateLimit,
	}
	if err := a.db.Create(app).Error; err != nil {
		return nil, err
	}
	return app, nil
}

// ApplicationFields holds the mutable fields of an application. Nil fields
// are left unchanged.
type ApplicationFields struct {
	Name         *string
	Description  *string
	RedirectURIs []string
	Scopes       []string
	Active       *bool
	RateLimit    *int
}

// Update applies the given fields to the application. Only the owner may
// mutate an application.
func (a *Applications) Update(id, callerID snowflake.ID, fields ApplicationFields) (*Application, error) {
	var app Application
	if err := a.db.First(&app, id).Error; err != nil {
		return nil, err
	}
	if app.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	if fields.Name != nil {
		if strings.TrimSpace(*fields.Name) == "" {
			return nil, fmt.Errorf("%w: name is required", ErrValidation)
		}
		app.Name = *fields.Name
	}
	if fields.Description != nil {
		app.Description = *fields.Description
	}
	if fields.RedirectURIs != nil {
		app.RedirectURIs = strings.Join(fields.RedirectURIs, " ")
	}
	if fields.Scopes != nil {
		app.Scopes = strings.Join(fields.Scopes, " ")
	}
	if fields.Active != nil {
		app.Active = *fields.Active
	}
	if fields.RateLimit != nil {
		app.RateLimit = *fields.RateLimit
	}
	if err := a.db.Save(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// FindByClientID returns the application with the given public client id.
func (a *Applications) FindByClientID(clientID string) (*Application, error) {
	var app Application
	if err := a.db.Where("client_id = ?", clientID).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// FindByOwner returns all applications owned by the given user.
func (a *Applications) FindByOwner(ownerID snowflake.ID) ([]Application, error) {
	var apps []Application
	if err := a.db.Where("owner_id = ?", ownerID).Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}
