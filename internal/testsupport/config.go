package testsupport

import (
	"path/filepath"
	"testing"

	"panelreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Content.Dir = filepath.Join(base, "comics")
	cfgVal.Assets.BaseURL = filepath.Join(base, "assets")
	cfgVal.Remote.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithComicMode selects immediate rendering.
func WithComicMode() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Playback.Mode = config.ModeComic
	}
}

// WithImplicitAudio toggles the {id}.ext voice convention.
func WithImplicitAudio(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Playback.ImplicitAudio = enabled
	}
}

// WithWindowRadius overrides the page window radius.
func WithWindowRadius(radius int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Window.Radius = radius
	}
}

// WithHTTPContent points the content source at baseURL.
func WithHTTPContent(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Content.Source = config.SourceHTTP
		b.cfg.Content.BaseURL = baseURL
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
