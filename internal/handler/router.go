package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chronicleHandler "github.com/hearthlight/backend/internal/handler/chronicle"
	generateHandler "github.com/hearthlight/backend/internal/handler/generate"
	middlewarePkg "github.com/hearthlight/backend/internal/middleware"
	"github.com/hearthlight/backend/internal/store"
	"github.com/hearthlight/backend/pkg/utils"
)

// StaticDirs names the on-disk directories served to the reveal page.
type StaticDirs struct {
	// AssetPool is the pre-seeded artifact pool, served under /assets/pool.
	AssetPool string
	// Media holds generated narration files, served under /media.
	Media string
	// PublicBaseURL prefixes share links; empty keeps them relative.
	PublicBaseURL string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(s *store.Store, genHandler *generateHandler.Handler, dirs StaticDirs) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		chronicleHandler.New(s, dirs.PublicBaseURL).RegisterRoutes(api)
		genHandler.RegisterRoutes(api)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	if dirs.AssetPool != "" {
		fileServer(r, "/assets/pool", dirs.AssetPool)
	}
	if dirs.Media != "" {
		fileServer(r, "/media", dirs.Media)
	}

	return r
}

func fileServer(r chi.Router, prefix, dir string) {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	r.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		fs.ServeHTTP(w, req)
	})
}
