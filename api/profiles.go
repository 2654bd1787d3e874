package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/unilink-net/unilink/internal/httpx"
	"github.com/unilink-net/unilink/internal/snowflake"
	"github.com/unilink-net/unilink/internal/to"
	"github.com/unilink-net/unilink/models"
	"gorm.io/gorm"
)

// ProfilesShow returns the public subset of a profile. With no id in the
// path it returns the profile of the token's own user. Requires scope
// profile:read.
func ProfilesShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	token, err := env.authorize(r, "profile:read")
	if err != nil {
		return err
	}

	userID := token.UserID
	if param := chi.URLParam(r, "id"); param != "" {
		id, err := strconv.ParseUint(param, 10, 64)
		if err != nil {
			return httpx.Error(http.StatusBadRequest, "invalid_request", err)
		}
		userID = snowflake.ID(id)
	}

	profile, err := models.NewProfiles(env.DB).FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			env.logUsage(r, token, http.StatusNotFound)
			return httpx.Error(http.StatusNotFound, "profile_not_found", err)
		}
		return err
	}
	if !profile.Public && profile.UserID != token.UserID {
		env.logUsage(r, token, http.StatusNotFound)
		return httpx.Error(http.StatusNotFound, "profile_not_found", errors.New("profile is not public"))
	}

	env.logUsage(r, token, http.StatusOK)
	return to.JSON(w, serialiseProfile(profile))
}

// serialiseProfile maps a profile to the fixed public field subset. Email,
// bio and the public flag never leave through the API.
func serialiseProfile(p *models.Profile) map[string]any {
	var name string
	if p.User != nil {
		name = p.User.DisplayName
	}
	return map[string]any{
		"user_id":         strconv.FormatUint(uint64(p.UserID), 10),
		"display_name":    name,
		"university":      p.University,
		"graduation_year": p.GraduationYear,
		"field":           p.Field,
		"headline":        p.Headline,
		"location":        p.Location,
	}
}
