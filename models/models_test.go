package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/unilink-net/unilink/internal/snowflake"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger: logger.Default.LogMode(func() logger.LogLevel {
			return logger.Warn
		}()),
	})
	require.NoError(err)

	err = db.AutoMigrate(AllTables()...)
	require.NoError(err)

	// enable foreign key constraints
	err = db.Exec("PRAGMA foreign_keys = ON").Error
	require.NoError(err)

	return db
}

// MockUser creates a new user in the database.
func MockUser(t *testing.T, tx *gorm.DB, name string, opts ...func(*User)) *User {
	t.Helper()
	require := require.New(t)

	passwd, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(err)

	user := &User{
		ID:                snowflake.Now(),
		Email:             fmt.Sprintf("%s@example.edu", name),
		EncryptedPassword: passwd,
		DisplayName:       name,
	}
	for _, opt := range opts {
		opt(user)
	}
	require.NoError(tx.Create(user).Error)
	return user
}

// MockProfile creates a profile for the given user.
func MockProfile(t *testing.T, tx *gorm.DB, user *User, opts ...func(*Profile)) *Profile {
	t.Helper()
	require := require.New(t)

	profile := &Profile{
		ID:             snowflake.Now(),
		UserID:         user.ID,
		University:     "Example State University",
		GraduationYear: 2020,
		Field:          "Computer Science",
		Headline:       "Software Engineer",
		Location:       "Springfield",
		Public:         true,
	}
	for _, opt := range opts {
		opt(profile)
	}
	require.NoError(tx.Create(profile).Error)
	return profile
}

// WithScopes sets the scopes of a mock application.
func WithScopes(scopes string) func(*Application) {
	return func(a *Application) {
		a.Scopes = scopes
	}
}

// MockApplication creates an application owned by the given user.
func MockApplication(t *testing.T, tx *gorm.DB, owner *User, name string, opts ...func(*Application)) *Application {
	t.Helper()
	require := require.New(t)

	app := &Application{
		ID:           snowflake.Now(),
		OwnerID:      owner.ID,
		Name:         name,
		ClientID:     "ul_" + uuid.New().String(),
		ClientSecret: "uls_" + uuid.New().String(),
		Scopes:       "profile:read directory:read credentials:read credentials:verify",
		Type:         "server",
		Active:       true,
		RateLimit:    1000,
	}
	for _, opt := range opts {
		opt(app)
	}
	require.NoError(tx.Create(app).Error)
	return app
}

// MockWebhookEndpoint creates a webhook endpoint for the given application.
func MockWebhookEndpoint(t *testing.T, tx *gorm.DB, app *Application, url string, opts ...func(*WebhookEndpoint)) *WebhookEndpoint {
	t.Helper()
	require := require.New(t)

	endpoint, err := NewWebhookEndpoints(tx).Create(app.ID, url, []string{"credential.issued"}, "whsec_"+uuid.New().String())
	require.NoError(err)
	for _, opt := range opts {
		opt(endpoint)
		require.NoError(tx.Save(endpoint).Error)
	}
	return endpoint
}

// mockDelivery records a webhook delivery row as the dispatcher would after
// a failed first attempt.
func mockDelivery(t *testing.T, tx *gorm.DB, endpoint *WebhookEndpoint) *WebhookDelivery {
	t.Helper()

	delivery := &WebhookDelivery{
		ID:                snowflake.Now(),
		WebhookEndpointID: endpoint.ID,
		EventType:         "credential.issued",
		Payload:           `{"ping":true}`,
		AttemptCount:      1,
	}
	require.NoError(t, NewWebhookDeliveries(tx).Record(delivery))
	return delivery
}

// MockCredential creates a credential for the given user.
func MockCredential(t *testing.T, tx *gorm.DB, user *User, title string) *Credential {
	t.Helper()
	require := require.New(t)

	issued := time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC)
	credential := &Credential{
		ID:          snowflake.Now(),
		UserID:      user.ID,
		Type:        "degree",
		Title:       title,
		Issuer:      "Example State University",
		IssuedOn:    issued,
		ContentHash: CredentialHash(user.ID, "degree", title, "Example State University", issued),
	}
	require.NoError(tx.Create(credential).Error)
	return credential
}
