// Package imagestore persists uploaded receipt images.
package imagestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Stored describes a persisted image.
type Stored struct {
	// ID is the storage key used for later deletion.
	ID string
	// URL is the location handed to the OCR provider and API clients.
	URL string
	// Hash is the hex-encoded SHA-256 of the image content.
	Hash string
	// Size is the stored byte count.
	Size int64
}

// Store persists receipt images and hands back content-addressed metadata.
type Store interface {
	Save(ctx context.Context, r io.Reader, contentType string) (Stored, error)
	Delete(ctx context.Context, id string) error
}

// HashReader consumes r and returns the hex SHA-256 of its content.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
