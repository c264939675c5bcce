package chronicle

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	model "github.com/hearthlight/backend/internal/model/chronicle"
	"github.com/hearthlight/backend/internal/store"
	"github.com/hearthlight/backend/pkg/utils"
)

// Handler serves the chronicle record API: save, public read, view
// logging, and token-gated stats.
type Handler struct {
	store   *store.Store
	baseURL string
}

// New creates a chronicle handler backed by the given store. baseURL
// prefixes share URLs; empty keeps them relative.
func New(s *store.Store, baseURL string) *Handler {
	return &Handler{store: s, baseURL: baseURL}
}

// RegisterRoutes mounts the chronicle routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chronicles", func(cr chi.Router) {
		cr.Post("/", h.handleSave)
		cr.Get("/{slug}", h.handleGetBySlug)
		cr.Post("/{slug}/view", h.handleLogView)
		cr.Get("/{slug}/stats", h.handleStats)
	})
}

type savePayload struct {
	Recipient        model.Recipient         `json:"recipient"`
	Occasion         model.Occasion          `json:"occasion"`
	Narrative        model.Narrative         `json:"narrative"`
	NarrativeContext *model.NarrativeContext `json:"narrativeContext"`
	Theme            model.Theme             `json:"theme"`
	Prose            string                  `json:"prose"`
	ImageURL         string                  `json:"imageUrl"`
	AnimationURL     string                  `json:"animationUrl"`
	AudioURL         string                  `json:"audioUrl"`
}

// handleSave persists a new chronicle and returns its share identity. The
// creator token appears only in this response; the caller must keep it.
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var payload savePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.Prose == "" {
		utils.RespondError(w, http.StatusBadRequest, "prose is required")
		return
	}

	theme, _ := model.ThemeOrDefault(payload.Theme)
	c := model.Chronicle{
		Recipient:        payload.Recipient,
		Occasion:         payload.Occasion,
		Narrative:        payload.Narrative,
		NarrativeContext: payload.NarrativeContext,
		Theme:            theme,
		Prose:            payload.Prose,
		ImageURL:         payload.ImageURL,
		AnimationURL:     payload.AnimationURL,
		AudioURL:         payload.AudioURL,
	}

	if err := h.store.Save(r.Context(), &c); err != nil {
		log.Printf("[chronicles] save failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to save chronicle")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"slug":         c.Slug,
		"creatorToken": c.CreatorToken,
		"shareUrl":     h.baseURL + "/c/" + c.Slug,
	})
}

// handleGetBySlug returns the public view of a chronicle. The creator
// token is stripped before the record leaves the process.
func (h *Handler) handleGetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	c, err := h.store.GetBySlug(r.Context(), slug)
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		log.Printf("[chronicles] load %s failed: %v", slug, err)
		utils.RespondError(w, http.StatusInternalServerError, "server error")
		return
	}

	utils.RespondJSON(w, http.StatusOK, c.Public())
}

// handleLogView appends a view event keyed by an anonymized caller address.
func (h *Handler) handleLogView(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	addr := r.Header.Get("X-Forwarded-For")
	if addr == "" {
		addr = r.RemoteAddr
	}

	if err := h.store.LogView(r.Context(), slug, store.AnonymizeViewer(addr)); err != nil {
		log.Printf("[chronicles] log view for %s failed: %v", slug, err)
		utils.RespondError(w, http.StatusInternalServerError, "server error")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleStats returns view stats to the creator. Wrong tokens and unknown
// slugs get the same answer so the endpoint cannot be used to probe for
// existing chronicles.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	token := r.Header.Get("X-Creator-Token")

	stats, err := h.store.Stats(r.Context(), slug, token)
	if errors.Is(err, store.ErrUnauthorized) {
		utils.RespondError(w, http.StatusForbidden, "unauthorized")
		return
	}
	if err != nil {
		log.Printf("[chronicles] stats for %s failed: %v", slug, err)
		utils.RespondError(w, http.StatusInternalServerError, "server error")
		return
	}

	utils.RespondJSON(w, http.StatusOK, stats)
}
