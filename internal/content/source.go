package content

import (
	"context"
	"errors"
	"fmt"

	"panelreel/internal/config"
	"panelreel/internal/scene"
)

// ErrNotFound reports a document the source does not have.
var ErrNotFound = errors.New("content not found")

// Source is a read contract for page snapshots.
type Source interface {
	FetchScene(ctx context.Context, page scene.PageRef) ([]scene.Cue, error)
	FetchMedia(ctx context.Context, page scene.PageRef) (scene.PageMedia, error)
	FetchAudioMap(ctx context.Context, series, volume string) ([]scene.AudioMapEntry, error)
	ListPages(ctx context.Context, series, volume string) ([]scene.PageRef, error)
}

// NewSource builds the source selected by cfg.Content.Source.
func NewSource(cfg *config.Config) (Source, error) {
	switch cfg.Content.Source {
	case config.SourceDir:
		return NewDirSource(cfg.Content.Dir), nil
	case config.SourceHTTP:
		return NewHTTPSource(cfg.Content.BaseURL, cfg.Content.APIToken, cfg.RequestTimeout(), nil), nil
	default:
		return nil, fmt.Errorf("content source: unsupported value %q", cfg.Content.Source)
	}
}
