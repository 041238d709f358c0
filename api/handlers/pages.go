package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/EO-DataHub/eodhp-groupmatrix/internal/wiki"
	"github.com/EO-DataHub/eodhp-groupmatrix/models"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<main class="page">
{{.Content}}</main>
</body>
</html>
`))

type pageData struct {
	Title   string
	Content template.HTML
}

// GetPage renders a stored page as a complete HTML document.
func GetPage(store PageStore, renderer PageRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["page"]
		logger := zerolog.Ctx(r.Context()).With().Str("page", name).Logger()

		source, err := store.Load(name)
		switch {
		case errors.Is(err, wiki.ErrInvalidPageName):
			HandleErrResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidPageName, err)
			return
		case errors.Is(err, wiki.ErrPageNotFound):
			HandleErrResponse(w, http.StatusNotFound, models.ErrorCodePageNotFound, err)
			return
		case err != nil:
			logger.Error().Err(err).Msg("Failed to load page")
			HandleErrResponse(w, http.StatusInternalServerError, models.ErrorCodePageReadFailed, err)
			return
		}

		var content bytes.Buffer
		if err := renderer.Render(logger.WithContext(r.Context()), &content, source); err != nil {
			logger.Error().Err(err).Msg("Failed to render page")
			HandleErrResponse(w, http.StatusInternalServerError, models.ErrorCodeRenderFailed, err)
			return
		}

		var doc bytes.Buffer
		if err := pageTemplate.Execute(&doc, pageData{
			Title:   name,
			Content: template.HTML(content.String()),
		}); err != nil {
			logger.Error().Err(err).Msg("Failed to execute page template")
			HandleErrResponse(w, http.StatusInternalServerError, models.ErrorCodeRenderFailed, err)
			return
		}

		writeHTML(w, http.StatusOK, doc.Bytes())
	}
}

// RenderPage renders the page source in the request body and returns the
// HTML fragment.
func RenderPage(renderer PageRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		source, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPageSize))
		if err != nil {
			logger.Debug().Err(err).Msg("Invalid request body")
			HandleErrResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, err)
			return
		}

		var content bytes.Buffer
		if err := renderer.Render(r.Context(), &content, string(source)); err != nil {
			logger.Error().Err(err).Msg("Failed to render page")
			HandleErrResponse(w, http.StatusInternalServerError, models.ErrorCodeRenderFailed, err)
			return
		}

		writeHTML(w, http.StatusOK, content.Bytes())
	}
}
