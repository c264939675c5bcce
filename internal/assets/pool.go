// Package assets serves pre-generated artifacts from a local directory
// pool so the common themes never need a remote generation call.
package assets

import (
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hearthlight/backend/internal/model/chronicle"
)

// Pool indexes a directory laid out <root>/<kind>/<theme>/<file> and hands
// out random entries. A missing or empty directory is a normal negative
// result, never an error.
type Pool struct {
	root      string
	publicURL string
	pick      func(n int) int

	mu      sync.RWMutex
	entries map[string][]string
}

// Option customizes a Pool.
type Option func(*Pool)

// WithPicker overrides the random index selection, used by tests.
func WithPicker(pick func(n int) int) Option {
	return func(p *Pool) { p.pick = pick }
}

// NewPool scans root and returns a pool serving entries under publicURL
// (e.g. "/assets/pool"). Scan failures leave the affected bucket empty.
func NewPool(root, publicURL string, opts ...Option) *Pool {
	p := &Pool{
		root:      root,
		publicURL: strings.TrimRight(publicURL, "/"),
		pick:      rand.IntN,
		entries:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.Refresh()
	return p
}

// Refresh rescans the pool directory. Safe to call concurrently with reads.
func (p *Pool) Refresh() {
	entries := make(map[string][]string)

	kinds, err := os.ReadDir(p.root)
	if err != nil {
		p.swap(entries)
		return
	}

	for _, kindDir := range kinds {
		if !kindDir.IsDir() {
			continue
		}
		themes, err := os.ReadDir(filepath.Join(p.root, kindDir.Name()))
		if err != nil {
			continue
		}
		for _, themeDir := range themes {
			if !themeDir.IsDir() {
				continue
			}
			files, err := os.ReadDir(filepath.Join(p.root, kindDir.Name(), themeDir.Name()))
			if err != nil {
				continue
			}
			key := bucketKey(chronicle.Kind(kindDir.Name()), chronicle.Theme(themeDir.Name()))
			for _, f := range files {
				if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
					continue
				}
				entries[key] = append(entries[key],
					path.Join(kindDir.Name(), themeDir.Name(), f.Name()))
			}
			sort.Strings(entries[key])
		}
	}

	p.swap(entries)
}

// TryLocal returns a uniformly random pool entry for (kind, theme) as a
// public URL path, or ("", false) when the bucket is empty or absent.
func (p *Pool) TryLocal(kind chronicle.Kind, theme chronicle.Theme) (string, bool) {
	rel, ok := p.pickEntry(kind, theme)
	if !ok {
		return "", false
	}
	return path.Join(p.publicURL, rel), true
}

// TryLocalText picks a random entry and returns its file contents. Used
// for kinds whose artifact is text (canned prose) rather than a served
// asset. An unreadable file degrades to a miss.
func (p *Pool) TryLocalText(kind chronicle.Kind, theme chronicle.Theme) (string, bool) {
	rel, ok := p.pickEntry(kind, theme)
	if !ok {
		return "", false
	}
	raw, err := os.ReadFile(filepath.Join(p.root, filepath.FromSlash(rel)))
	if err != nil {
		return "", false
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", false
	}
	return text, true
}

// Dir returns the pool's root directory on disk.
func (p *Pool) Dir() string {
	return p.root
}

func (p *Pool) pickEntry(kind chronicle.Kind, theme chronicle.Theme) (string, bool) {
	p.mu.RLock()
	bucket := p.entries[bucketKey(kind, theme)]
	p.mu.RUnlock()

	if len(bucket) == 0 {
		return "", false
	}
	return bucket[p.pick(len(bucket))], true
}

func (p *Pool) swap(entries map[string][]string) {
	p.mu.Lock()
	p.entries = entries
	p.mu.Unlock()
}

func bucketKey(kind chronicle.Kind, theme chronicle.Theme) string {
	return string(kind) + "/" + string(theme)
}
