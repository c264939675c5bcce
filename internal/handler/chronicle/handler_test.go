package chronicle

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	model "github.com/hearthlight/backend/internal/model/chronicle"
	"github.com/hearthlight/backend/internal/store"
)

func setupRouter(t *testing.T) (*chi.Mux, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	r := chi.NewRouter()
	New(s, "").RegisterRoutes(r)
	return r, s
}

func saveBody() []byte {
	payload := map[string]any{
		"recipient": map[string]string{"name": "June", "relationship": "friend"},
		"occasion":  map[string]string{"label": "Birthday"},
		"narrative": map[string]string{"tone": "playful & light"},
		"theme":     "ocean-calm",
		"prose":     "The tide keeps its promises.",
		"imageUrl":  "/assets/pool/image/ocean-calm/X.webp",
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func TestSaveReturnsSlugAndToken(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/chronicles/", bytes.NewReader(saveBody()))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var out map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["slug"] == "" || out["creatorToken"] == "" {
		t.Fatalf("missing identity in response: %v", out)
	}
	if out["shareUrl"] != "/c/"+out["slug"] {
		t.Fatalf("unexpected shareUrl: %s", out["shareUrl"])
	}
}

func TestSaveRejectsMissingProse(t *testing.T) {
	r, _ := setupRouter(t)

	body := []byte(`{"recipient":{"name":"June","relationship":"friend"},"theme":"celestial"}`)
	req := httptest.NewRequest(http.MethodPost, "/chronicles/", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetBySlugStripsCreatorToken(t *testing.T) {
	r, s := setupRouter(t)

	c := &model.Chronicle{
		Recipient: model.Recipient{Name: "June", Relationship: "friend"},
		Occasion:  model.Occasion{Label: "Birthday"},
		Narrative: model.Narrative{Tone: "playful & light"},
		Theme:     model.ThemeOceanCalm,
		Prose:     "The tide keeps its promises.",
	}
	if err := s.Save(t.Context(), c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/chronicles/"+c.Slug, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, leaked := out["creatorToken"]; leaked {
		t.Fatal("public response must not contain creatorToken")
	}
	if out["prose"] != c.Prose {
		t.Fatalf("prose = %v, want %q", out["prose"], c.Prose)
	}
}

func TestGetBySlugNotFound(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/chronicles/missing", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestViewLoggingAndStats(t *testing.T) {
	r, s := setupRouter(t)

	c := &model.Chronicle{
		Recipient: model.Recipient{Name: "June", Relationship: "friend"},
		Theme:     model.ThemeCelestial,
		Prose:     "Starlight, counted twice.",
	}
	if err := s.Save(t.Context(), c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/chronicles/"+c.Slug+"/view", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("view: expected 200, got %d", resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/chronicles/"+c.Slug+"/stats", nil)
	req.Header.Set("X-Creator-Token", c.CreatorToken)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", resp.Code)
	}
	var stats struct {
		Views int `json:"views"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Views != 2 {
		t.Fatalf("views = %d, want 2", stats.Views)
	}
}

func TestStatsUniformlyUnauthorized(t *testing.T) {
	r, s := setupRouter(t)

	c := &model.Chronicle{
		Recipient: model.Recipient{Name: "June", Relationship: "friend"},
		Theme:     model.ThemeCelestial,
		Prose:     "Starlight.",
	}
	if err := s.Save(t.Context(), c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cases := []struct {
		name string
		path string
	}{
		{"wrong token", "/chronicles/" + c.Slug + "/stats"},
		{"missing chronicle", "/chronicles/does-not-exist/stats"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set("X-Creator-Token", "wrong-token")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		if resp.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", tc.name, resp.Code)
		}
	}
}
