package memes3

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// DirStore writes images to a local directory, served back under BaseURL by
// Handler. Used when running dry.
type DirStore struct {
	Dir     string
	BaseURL string
}

func NewDirStore(dir, baseURL string) *DirStore {
	return &DirStore{
		Dir:     dir,
		BaseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (d *DirStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create asset dir %v: %w", d.Dir, err)
	}
	name := ObjectName(contentType)
	filename := filepath.Join(d.Dir, name)
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write asset %v: %w", filename, err)
	}
	zerolog.Ctx(ctx).Debug().Str("filename", filename).Int("size", len(data)).Msg("dry run, saved image locally")
	return d.BaseURL + "/" + name, nil
}

// Handler serves stored images; mount it with the BaseURL path stripped.
func (d *DirStore) Handler() http.Handler {
	return http.FileServer(http.Dir(d.Dir))
}
