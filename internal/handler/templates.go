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

type TemplateHandler struct {
	templateService *service.TemplateService
}

func NewTemplateHandler(templateService *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

func (h *TemplateHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/defaults", h.ListDefaults)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	sections, err := h.templateService.List(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("template query failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"templates": sections})
}

func (h *TemplateHandler) ListDefaults(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	sections, err := h.templateService.ListDefaults(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("default template query failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"templates": sections})
}

func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "id")

	section, err := h.templateService.Get(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Template not found"})
			return
		}
		log.Error().Err(err).Str("templateId", id).Msg("template lookup failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, section)
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req struct {
		Name      string `json:"name"`
		Content   string `json:"content"`
		Category  string `json:"category"`
		IsDefault bool   `json:"isDefault"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.Name == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Name and content are required"})
		return
	}

	section, err := h.templateService.Create(r.Context(), model.CreateTemplateParams{
		UserID:    user.ID,
		Name:      req.Name,
		Content:   req.Content,
		Category:  req.Category,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("template creation failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, section)
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "id")

	var req model.UpdateTemplateParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	section, err := h.templateService.Update(r.Context(), id, user.ID, req)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Template not found"})
			return
		}
		log.Error().Err(err).Str("templateId", id).Msg("template update failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, section)
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.templateService.Delete(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Template not found"})
			return
		}
		log.Error().Err(err).Str("templateId", id).Msg("template deletion failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
