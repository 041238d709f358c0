package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/EO-DataHub/eodhp-groupmatrix/models"
)

// maxPageSize bounds the page source accepted by the render endpoint.
const maxPageSize = 1 << 20

// PageRenderer renders page source to HTML.
type PageRenderer interface {
	Render(ctx context.Context, w io.Writer, source string) error
}

// PageStore loads page source by name.
type PageStore interface {
	Load(name string) (string, error)
}

// HandleErrResponse writes err as a JSON error response.
func HandleErrResponse(w http.ResponseWriter, statusCode int, code string, err error) {
	HandleSuccessResponse(w, statusCode, nil, models.Response{
		Success:      0,
		ErrorCode:    code,
		ErrorDetails: err.Error(),
	})
}

func HandleSuccessResponse(w http.ResponseWriter, statusCode int, headers map[string]string, response interface{}) {
	w.Header().Set("Content-Type", "application/json")

	// Memberships change outside the wiki, so responses must not be cached
	w.Header().Set("Cache-Control", "max-age=0")
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeHTML(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "max-age=0")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}
