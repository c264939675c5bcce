package generate

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	gen "github.com/hearthlight/backend/internal/generate"
	model "github.com/hearthlight/backend/internal/model/chronicle"
	"github.com/hearthlight/backend/internal/narrative"
	"github.com/hearthlight/backend/pkg/utils"
)

// Orchestrator is the generation pipeline surface this handler exposes.
type Orchestrator interface {
	GenerateArtifacts(ctx context.Context, req model.CreationRequest) (gen.Composite, error)
}

// ProseOnly generates just the prose artifact, the legacy wizard surface.
type ProseOnly interface {
	Generate(ctx context.Context, req gen.Request) (string, error)
}

// Handler serves the generation API.
type Handler struct {
	orchestrator Orchestrator
	prose        ProseOnly
	pool         gen.AssetPool
	image        ProseOnly
}

// New creates a generation handler. prose and image may be nil when the
// corresponding backends are not configured.
func New(orchestrator Orchestrator, prose, image ProseOnly, pool gen.AssetPool) *Handler {
	return &Handler{orchestrator: orchestrator, prose: prose, image: image, pool: pool}
}

// RegisterRoutes mounts the generation routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/generate", func(gr chi.Router) {
		gr.Post("/", h.handleGenerate)
		gr.Post("/prose", h.handleProse)
		gr.Post("/image", h.handleImage)
	})
}

// handleGenerate runs the full orchestrated pipeline for one request.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req model.CreationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	composite, err := h.orchestrator.GenerateArtifacts(r.Context(), req)
	if err != nil {
		log.Printf("[generate] pipeline failed: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "generation failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, composite)
}

// handleProse generates only the prose artifact.
func (h *Handler) handleProse(w http.ResponseWriter, r *http.Request) {
	var req model.CreationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := narrative.Resolve(req)
	theme, _ := model.ThemeOrDefault(req.Theme)

	if text, ok := h.pool.TryLocalText(model.KindProse, theme); ok {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"prose": text})
		return
	}

	if h.prose == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "prose generation unavailable")
		return
	}

	text, err := h.prose.Generate(r.Context(), gen.Request{
		Kind:   model.KindProse,
		Theme:  theme,
		Prompt: narrative.BuildProsePrompt(in),
	})
	if err != nil {
		log.Printf("[generate] prose failed: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "generation failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"prose": text})
}

// handleImage generates only the background image: local pool first, then
// the media backend. A null imageUrl is a normal answer when neither tier
// can produce one; the reveal page falls back to CSS theme gradients.
func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	var req model.CreationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	theme, _ := model.ThemeOrDefault(req.Theme)

	if uri, ok := h.pool.TryLocal(model.KindImage, theme); ok {
		utils.RespondJSON(w, http.StatusOK, map[string]*string{"imageUrl": &uri})
		return
	}

	if h.image == nil {
		utils.RespondJSON(w, http.StatusOK, map[string]*string{"imageUrl": nil})
		return
	}

	in := narrative.Resolve(req)
	uri, err := h.image.Generate(r.Context(), gen.Request{
		Kind:   model.KindImage,
		Theme:  theme,
		Prompt: narrative.BuildVisualPrompt(theme, in),
	})
	if err != nil {
		var gerr *gen.GenerationError
		if errors.As(err, &gerr) {
			log.Printf("[generate] image failed (%s), responding null: %v", gerr.Kind, err)
		} else {
			log.Printf("[generate] image failed, responding null: %v", err)
		}
		utils.RespondJSON(w, http.StatusOK, map[string]*string{"imageUrl": nil})
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]*string{"imageUrl": &uri})
}
