package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/picklepickle/picklepay/internal/invoice/domain"
	"github.com/spf13/afero"
)

// LocalStore writes documents below a directory on the given filesystem.
type LocalStore struct {
	fs            afero.Fs
	dir           string
	publicBaseURL string
}

func NewLocalStore(fs afero.Fs, dir, publicBaseURL string) *LocalStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &LocalStore{
		fs:            fs,
		dir:           dir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *LocalStore) Put(ctx context.Context, doc domain.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := cleanKey(doc.Key)
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create invoice dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, target, doc.Body, 0o644); err != nil {
		return "", fmt.Errorf("write invoice document: %w", err)
	}

	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}
	return "file://" + filepath.ToSlash(target), nil
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(key))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid document key %q", key)
	}
	return cleaned, nil
}
