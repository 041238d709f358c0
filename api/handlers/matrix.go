package handlers

import (
	"errors"
	"net/http"

	"github.com/EO-DataHub/eodhp-groupmatrix/internal/directive"
	"github.com/EO-DataHub/eodhp-groupmatrix/internal/matrix"
	"github.com/EO-DataHub/eodhp-groupmatrix/models"
)

// GetMatrix returns the membership matrix for the groups, attributes and
// titles given as query parameters, using the same comma separated lists as
// the page directive.
func GetMatrix(dir matrix.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		cfg, err := directive.FromValues(map[string]string{
			"groups":     query.Get("groups"),
			"attributes": query.Get("attributes"),
			"titles":     query.Get("titles"),
		})
		if errors.Is(err, directive.ErrMissingGroups) {
			HandleErrResponse(w, http.StatusBadRequest, models.ErrorCodeMissingGroups, err)
			return
		}

		m := matrix.Build(r.Context(), dir, cfg)

		HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
			Success: 1,
			Data:    m,
		})
	}
}
