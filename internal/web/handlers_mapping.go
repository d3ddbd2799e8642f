package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalogcsv/internal/core"
)

// mappingResponse is the detected mapping of an uploaded header.
type mappingResponse struct {
	Header   []string                   `json:"header"`
	Mapping  *core.MappingConfiguration `json:"mapping"`
	Template *core.MappingTemplate      `json:"template,omitempty"`
}

// handleDetectMapping reads the header of an uploaded file and returns the
// mapping to use for it: a saved template's when one matches, otherwise the
// auto-mapped default.
func (s *Server) handleDetectMapping(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUpload(w, r)
	if err != nil {
		respondErrorStatus(w, r, err, uploadStatus(err))
		return
	}
	defer u.file.Close()

	delimiter := r.FormValue("delimiter")
	if delimiter == "" {
		delimiter = s.cfg.Import.Delimiter
	}

	header, err := core.ReadHeader(u.file, u.name, delimiter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	mapping, template, err := s.service.MappingForHeader(r.Context(), header, delimiter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, mappingResponse{Header: header, Mapping: mapping, Template: template})
}

// handleDefaultMapping returns the mapping of every known field to a column
// of the same name.
func (s *Server) handleDefaultMapping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.DefaultMapping())
}

// templateRequest is the body of template create and update calls.
type templateRequest struct {
	Name    string                     `json:"name"`
	Mapping *core.MappingConfiguration `json:"mapping"`
}

func decodeTemplateRequest(r *http.Request) (templateRequest, error) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("%w: invalid request body: %v", core.ErrInvalidMapping, err)
	}
	if req.Mapping == nil {
		return req, fmt.Errorf("%w: mapping is required", core.ErrInvalidMapping)
	}
	return req, nil
}

// handleListTemplates returns all mapping templates ordered by name.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.service.ListTemplates(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if templates == nil {
		templates = []core.MappingTemplate{}
	}
	writeJSON(w, templates)
}

// handleMatchTemplates finds templates matching the provided CSV headers,
// given as a comma-separated headers parameter.
func (s *Server) handleMatchTemplates(w http.ResponseWriter, r *http.Request) {
	headersStr := r.URL.Query().Get("headers")
	if headersStr == "" {
		respondMessage(w, r, http.StatusBadRequest, "missing headers parameter")
		return
	}

	headers := strings.Split(headersStr, ",")
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	matches, err := s.service.MatchTemplates(r.Context(), headers)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if matches == nil {
		matches = []core.TemplateMatch{}
	}
	writeJSON(w, matches)
}

// handleGetTemplate returns a single mapping template by ID.
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	template, err := s.service.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, template)
}

// handleCreateTemplate saves a new mapping template.
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTemplateRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	template, err := s.service.CreateTemplate(r.Context(), req.Name, req.Mapping)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, template)
}

// handleUpdateTemplate replaces a template's name and mapping.
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTemplateRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	template, err := s.service.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), req.Name, req.Mapping)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, template)
}

// handleDeleteTemplate removes a template.
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
