// Package store persists chronicles and their append-only view log in a
// local SQLite database and gates aggregate stats behind the creator token.
package store

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hearthlight/backend/internal/model/chronicle"
)

var (
	// ErrNotFound is returned by GetBySlug for an unknown slug.
	ErrNotFound = errors.New("chronicle not found")
	// ErrUnauthorized is returned by Stats for a wrong token and,
	// deliberately indistinguishably, for a missing chronicle.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrProseRequired rejects saving a chronicle with empty prose.
	ErrProseRequired = errors.New("prose is required")
	// ErrPersistence wraps storage I/O failures.
	ErrPersistence = errors.New("persistence failure")
)

// Store owns the chronicles table and the view log. All mutation goes
// through Save and LogView.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the SQLite database at dbPath and applies
// migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies schema migrations keyed on user_version.
func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS chronicles (
		  id                TEXT PRIMARY KEY,
		  slug              TEXT NOT NULL UNIQUE,
		  creator_token     TEXT NOT NULL,
		  recipient_json    TEXT NOT NULL,
		  occasion_json     TEXT NOT NULL,
		  narrative_json    TEXT NOT NULL,
		  context_json      TEXT,
		  theme             TEXT NOT NULL,
		  prose             TEXT NOT NULL,
		  image_url         TEXT,
		  animation_url     TEXT,
		  audio_url         TEXT,
		  created_at        TEXT NOT NULL,
		  updated_at        TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS views (
		  id          INTEGER PRIMARY KEY AUTOINCREMENT,
		  slug        TEXT NOT NULL,
		  viewer_hash TEXT NOT NULL,
		  viewed_at   TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_views_slug ON views(slug);

		PRAGMA user_version = 1;
		`
		if _, err := s.db.Exec(schema); err != nil {
			return err
		}
	}

	return nil
}

// Save upserts c by id. First-time saves are assigned an id, a slug, a
// creator token, and a creation timestamp; every save refreshes UpdatedAt.
// Fields are replaced wholesale, there is no partial patch.
func (s *Store) Save(ctx context.Context, c *chronicle.Chronicle) error {
	if c.Prose == "" {
		return ErrProseRequired
	}

	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = NewID()
	}
	if c.Slug == "" {
		slug, err := NewSlug()
		if err != nil {
			return fmt.Errorf("%w: mint slug: %v", ErrPersistence, err)
		}
		c.Slug = slug
	}
	if c.CreatorToken == "" {
		token, err := NewCreatorToken()
		if err != nil {
			return fmt.Errorf("%w: mint creator token: %v", ErrPersistence, err)
		}
		c.CreatorToken = token
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	recipient, occasion, narrative, contextJSON, err := marshalSnapshot(c)
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", ErrPersistence, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chronicles
		  (id, slug, creator_token, recipient_json, occasion_json, narrative_json,
		   context_json, theme, prose, image_url, animation_url, audio_url,
		   created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  recipient_json = excluded.recipient_json,
		  occasion_json  = excluded.occasion_json,
		  narrative_json = excluded.narrative_json,
		  context_json   = excluded.context_json,
		  theme          = excluded.theme,
		  prose          = excluded.prose,
		  image_url      = excluded.image_url,
		  animation_url  = excluded.animation_url,
		  audio_url      = excluded.audio_url,
		  updated_at     = excluded.updated_at
	`,
		c.ID, c.Slug, c.CreatorToken, recipient, occasion, narrative,
		contextJSON, string(c.Theme), c.Prose,
		nullable(c.ImageURL), nullable(c.AnimationURL), nullable(c.AudioURL),
		c.CreatedAt.Format(time.RFC3339Nano), c.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: save chronicle %s: %v", ErrPersistence, c.ID, err)
	}
	return nil
}

// GetBySlug loads a chronicle including its creator token. The HTTP
// boundary is responsible for stripping the token before returning the
// record to non-owner callers.
func (s *Store) GetBySlug(ctx context.Context, slug string) (chronicle.Chronicle, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, slug, creator_token, recipient_json, occasion_json,
		       narrative_json, context_json, theme, prose,
		       image_url, animation_url, audio_url, created_at, updated_at
		FROM chronicles WHERE slug = ?
	`, slug)

	var (
		c                              chronicle.Chronicle
		recipient, occasion, narrative string
		contextJSON                    sql.NullString
		image, animation, audio        sql.NullString
		createdAt, updatedAt           string
		theme                          string
	)
	err := row.Scan(&c.ID, &c.Slug, &c.CreatorToken, &recipient, &occasion,
		&narrative, &contextJSON, &theme, &c.Prose,
		&image, &animation, &audio, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return chronicle.Chronicle{}, ErrNotFound
	}
	if err != nil {
		return chronicle.Chronicle{}, fmt.Errorf("%w: load chronicle %s: %v", ErrPersistence, slug, err)
	}

	c.Theme = chronicle.Theme(theme)
	c.ImageURL = image.String
	c.AnimationURL = animation.String
	c.AudioURL = audio.String

	if err := json.Unmarshal([]byte(recipient), &c.Recipient); err != nil {
		return chronicle.Chronicle{}, fmt.Errorf("%w: decode recipient: %v", ErrPersistence, err)
	}
	if err := json.Unmarshal([]byte(occasion), &c.Occasion); err != nil {
		return chronicle.Chronicle{}, fmt.Errorf("%w: decode occasion: %v", ErrPersistence, err)
	}
	if err := json.Unmarshal([]byte(narrative), &c.Narrative); err != nil {
		return chronicle.Chronicle{}, fmt.Errorf("%w: decode narrative: %v", ErrPersistence, err)
	}
	if contextJSON.Valid && contextJSON.String != "" {
		var nc chronicle.NarrativeContext
		if err := json.Unmarshal([]byte(contextJSON.String), &nc); err != nil {
			return chronicle.Chronicle{}, fmt.Errorf("%w: decode narrative context: %v", ErrPersistence, err)
		}
		c.NarrativeContext = &nc
	}

	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		c.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		c.UpdatedAt = t
	}

	return c, nil
}

// LogView appends one view event. Append-only; events are never mutated.
func (s *Store) LogView(ctx context.Context, slug, viewerHash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO views (slug, viewer_hash, viewed_at) VALUES (?, ?, ?)`,
		slug, viewerHash, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: log view for %s: %v", ErrPersistence, slug, err)
	}
	return nil
}

// ViewCount returns the number of logged views for slug.
func (s *Store) ViewCount(ctx context.Context, slug string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM views WHERE slug = ?`, slug).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count views for %s: %v", ErrPersistence, slug, err)
	}
	return n, nil
}

// Stats is the creator-facing aggregate for one chronicle.
type Stats struct {
	Views     int       `json:"views"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats returns view stats when token matches the chronicle's creator
// token. A wrong token and a missing chronicle both yield ErrUnauthorized
// so the endpoint does not leak slug existence.
func (s *Store) Stats(ctx context.Context, slug, token string) (Stats, error) {
	c, err := s.GetBySlug(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		return Stats{}, ErrUnauthorized
	}
	if err != nil {
		return Stats{}, err
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(c.CreatorToken)) != 1 {
		return Stats{}, ErrUnauthorized
	}

	views, err := s.ViewCount(ctx, slug)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Views: views, CreatedAt: c.CreatedAt}, nil
}

func marshalSnapshot(c *chronicle.Chronicle) (recipient, occasion, narrative string, contextJSON any, err error) {
	r, err := json.Marshal(c.Recipient)
	if err != nil {
		return "", "", "", nil, err
	}
	o, err := json.Marshal(c.Occasion)
	if err != nil {
		return "", "", "", nil, err
	}
	n, err := json.Marshal(c.Narrative)
	if err != nil {
		return "", "", "", nil, err
	}

	var ctxValue any
	if c.NarrativeContext != nil {
		raw, err := json.Marshal(c.NarrativeContext)
		if err != nil {
			return "", "", "", nil, err
		}
		ctxValue = string(raw)
	}
	return string(r), string(o), string(n), ctxValue, nil
}

// nullable maps "" to NULL so absent media URLs stay NULL in the schema.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
