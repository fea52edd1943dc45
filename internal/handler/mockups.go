package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/mockupdesk/listing-server-go/internal/middleware"
	"github.com/mockupdesk/listing-server-go/internal/model"
	"github.com/mockupdesk/listing-server-go/internal/service"
)

type MockupHandler struct {
	mockupService *service.MockupService
}

func NewMockupHandler(mockupService *service.MockupService) *MockupHandler {
	return &MockupHandler{mockupService: mockupService}
}

func (h *MockupHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/generate", h.Generate)
	r.Get("/{fileId}", h.Get)

	return r
}

func (h *MockupHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	folderID := r.URL.Query().Get("folderId")

	mockups, err := h.mockupService.List(r.Context(), user.ID, folderID)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("mockup listing failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"mockups": mockups})
}

func (h *MockupHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	fileID := chi.URLParam(r, "fileId")

	mockup, err := h.mockupService.Get(r.Context(), user.ID, fileID)
	if err != nil {
		if errors.Is(err, service.ErrMockupNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Mockup not found"})
			return
		}
		log.Error().Err(err).Str("fileId", fileID).Msg("mockup lookup failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mockup)
}

type generateRequest struct {
	FileID         string `json:"fileId"`
	CustomSections []struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	} `json:"customSections"`
}

func (h *MockupHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "fileId is required"})
		return
	}

	var custom []*model.TemplateSection
	for _, section := range req.CustomSections {
		if section.Name == "" || section.Content == "" {
			continue
		}
		custom = append(custom, &model.TemplateSection{Name: section.Name, Content: section.Content})
	}

	content, err := h.mockupService.Generate(r.Context(), user.ID, req.FileID, custom)
	if err != nil {
		if errors.Is(err, service.ErrGeneratorDisabled) {
			writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "Content generation not configured"})
			return
		}
		log.Error().Err(err).Str("userId", user.ID).Str("fileId", req.FileID).Msg("content generation failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}
