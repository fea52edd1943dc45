package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/mockupdesk/listing-server-go/internal/errors"
	"github.com/mockupdesk/listing-server-go/internal/middleware"
	"github.com/mockupdesk/listing-server-go/internal/service"
)

type ListingHandler struct {
	listingService *service.ListingService
}

func NewListingHandler(listingService *service.ListingService) *ListingHandler {
	return &ListingHandler{listingService: listingService}
}

func (h *ListingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/publish", h.Publish)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/activate", h.Activate)
	r.Get("/{id}/download", h.Download)

	return r
}

func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	listings, err := h.listingService.List(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("listing query failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "id")

	listing, err := h.listingService.Get(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrListingNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Listing not found"})
			return
		}
		log.Error().Err(err).Str("listingId", id).Msg("listing lookup failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

// priceValue accepts the price as either a JSON number or a numeric
// string ("9.99"), the way form-driven clients send it.
type priceValue float64

func (p *priceValue) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*p = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	if s == "" {
		*p = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid price %q", s)
	}
	*p = priceValue(v)
	return nil
}

type publishRequest struct {
	Mode        string     `json:"mode"`
	FileIDs     []string   `json:"fileIds"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Price       priceValue `json:"price"`
	Tags        []string   `json:"tags"`
	TaxonomyID  int64      `json:"taxonomyId"`
}

// Publish runs the full pipeline. A partial success (some image slots
// skipped) still returns 200 with partial=true and the skipped asset ids.
func (h *ListingHandler) Publish(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	mode := service.PublishMode(req.Mode)
	if mode == "" {
		mode = service.PublishModeMarketplace
	}
	if mode != service.PublishModeMarketplace && mode != service.PublishModeStandalone {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown publish mode"})
		return
	}

	result, err := h.listingService.Publish(r.Context(), service.PublishRequest{
		UserID:      user.ID,
		Mode:        mode,
		FileIDs:     req.FileIDs,
		Title:       req.Title,
		Description: req.Description,
		Price:       float64(req.Price),
		Tags:        req.Tags,
		TaxonomyID:  req.TaxonomyID,
	})
	if err != nil {
		if errors.Is(err, service.ErrShopNotConnected) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Marketplace shop not connected"})
			return
		}
		log.Error().Err(err).Str("userId", user.ID).Msg("publish failed")
		h.writePublishError(w, err, result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writePublishError keeps the stage trace in the error payload so the
// caller can see how far the pipeline got.
func (h *ListingHandler) writePublishError(w http.ResponseWriter, err error, result *service.PublishResult) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && result != nil {
		status := http.StatusInternalServerError
		switch appErr.Code {
		case apperrors.ErrCodeValidation, apperrors.ErrCodeInvalidInput, apperrors.ErrCodeMissingRequired:
			status = http.StatusBadRequest
		case apperrors.ErrCodeAuthExpired:
			status = http.StatusUnauthorized
		case apperrors.ErrCodeProvider:
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]any{
			"error":  appErr.Message,
			"code":   appErr.Code,
			"stages": result.Stages,
		})
		return
	}
	writeServiceError(w, err)
}

func (h *ListingHandler) Activate(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "id")

	listing, err := h.listingService.Activate(r.Context(), id, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrListingNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Listing not found"})
		case errors.Is(err, service.ErrNotMarketplace):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Listing is not on the marketplace"})
		case errors.Is(err, service.ErrAlreadyActive):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "Listing is already active"})
		case errors.Is(err, service.ErrShopNotConnected):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Marketplace shop not connected"})
		default:
			log.Error().Err(err).Str("listingId", id).Msg("activation failed")
			writeServiceError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

func (h *ListingHandler) Download(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "id")

	data, name, err := h.listingService.OpenArtifact(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrListingNotFound) || errors.Is(err, service.ErrNoArtifact) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Artifact not found"})
			return
		}
		log.Error().Err(err).Str("listingId", id).Msg("artifact download failed")
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Write(data)
}
