package api

import (
	"net/http"

	"github.com/unilink-net/unilink/internal/httpx"
	"github.com/unilink-net/unilink/internal/to"
	"github.com/unilink-net/unilink/models"
)

// DirectoryIndex searches public alumni profiles. Requires scope
// directory:read.
func DirectoryIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	token, err := env.authorize(r, "directory:read")
	if err != nil {
		return err
	}

	var params struct {
		University     string `schema:"university"`
		GraduationYear int    `schema:"graduation_year"`
		Field          string `schema:"field"`
		Limit          int    `schema:"limit"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}

	profiles, err := models.NewProfiles(env.DB).Search(models.ProfileSearch{
		University:     params.University,
		GraduationYear: params.GraduationYear,
		Field:          params.Field,
		Limit:          params.Limit,
	})
	if err != nil {
		return err
	}

	results := make([]map[string]any, 0, len(profiles))
	for i := range profiles {
		results = append(results, serialiseProfile(&profiles[i]))
	}

	env.logUsage(r, token, http.StatusOK)
	// total reflects the returned page, not the full match count
	return to.JSON(w, map[string]any{
		"profiles": results,
		"total":    len(results),
	})
}
