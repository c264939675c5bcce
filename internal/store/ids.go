package store

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/oklog/ulid/v2"
)

const slugAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	slugLength  = 10
	tokenLength = 32
)

// NewID mints a sortable chronicle id.
func NewID() string {
	return ulid.Make().String()
}

// NewSlug mints the short URL-safe public identifier of a chronicle.
func NewSlug() (string, error) {
	return randomString(slugLength)
}

// NewCreatorToken mints the opaque secret that gates a chronicle's stats.
func NewCreatorToken() (string, error) {
	return randomString(tokenLength)
}

func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = slugAlphabet[int(b)%len(slugAlphabet)]
	}
	return string(buf), nil
}

// AnonymizeViewer derives the non-reversible identifier logged for a view.
// A truncated SHA-256 keeps the log free of raw addresses; it is not meant
// to be a strong privacy boundary.
func AnonymizeViewer(remoteAddr string) string {
	sum := sha256.Sum256([]byte(remoteAddr))
	return hex.EncodeToString(sum[:8])
}
