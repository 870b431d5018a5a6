package imagestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUnsupportedContentType = errors.New("unsupported_content_type")

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// LocalStore writes images to a directory on disk. Files are named by a
// random UUID so user-supplied names never touch the filesystem.
type LocalStore struct {
	dir     string
	baseURL string
	log     *zap.Logger
}

func NewLocalStore(dir, baseURL string, log *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log.Named("imagestore.local"),
	}, nil
}

func (s *LocalStore) Save(ctx context.Context, r io.Reader, contentType string) (Stored, error) {
	ext, ok := extByContentType[contentType]
	if !ok {
		return Stored{}, ErrUnsupportedContentType
	}

	id := uuid.NewString() + ext
	path := filepath.Join(s.dir, id)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Stored{}, fmt.Errorf("create image file: %w", err)
	}

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, h), r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return Stored{}, fmt.Errorf("write image file: %w", err)
	}

	stored := Stored{
		ID:   id,
		URL:  s.baseURL + "/" + id,
		Hash: hex.EncodeToString(h.Sum(nil)),
		Size: size,
	}
	s.log.Debug("image stored",
		zap.String("id", stored.ID),
		zap.Int64("size", stored.Size),
	)
	return stored, nil
}

func (s *LocalStore) Delete(ctx context.Context, id string) error {
	// Defense against path traversal through a stored ID.
	if filepath.Base(id) != id {
		return fmt.Errorf("invalid image id %q", id)
	}
	err := os.Remove(filepath.Join(s.dir, id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
