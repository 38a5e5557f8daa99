package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for client-side state.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Content selects where scene, media, and audio-map snapshots are read from.
type Content struct {
	Source         string `toml:"source"` // "dir" or "http"
	Dir            string `toml:"dir"`
	BaseURL        string `toml:"base_url"`
	APIToken       string `toml:"api_token"`
	RequestTimeout int    `toml:"request_timeout"`
	Watch          bool   `toml:"watch"`
	Series         string `toml:"series"`
	Volume         string `toml:"volume"`
}

// Assets contains the retrieval path templates for each asset namespace.
//
// Templates may reference {base}, {series}, {volume}, {chapter}, {page},
// {type}, and {file}.
type Assets struct {
	BaseURL        string `toml:"base_url"`
	PageTemplate   string `toml:"page_template"`
	VolumeTemplate string `toml:"volume_template"`
	SeriesTemplate string `toml:"series_template"`
	GlobalTemplate string `toml:"global_template"`
	AudioExtension string `toml:"audio_extension"`
}

// Playback contains cue pacing and mode selection.
type Playback struct {
	// Mode is "gated" (sequential, audio-gated) or "comic" (every cue at once).
	Mode                  string `toml:"mode"`
	InterCuePauseMS       int    `toml:"inter_cue_pause_ms"`
	AudioSafetyMarginMS   int    `toml:"audio_safety_margin_ms"`
	AudioSafetyFallbackMS int    `toml:"audio_safety_fallback_ms"`
	TextBaseMS            int    `toml:"text_base_ms"`
	TextPerWordMS         int    `toml:"text_per_word_ms"`
	TextMinMS             int    `toml:"text_min_ms"`
	SyncStopRecheckMS     int    `toml:"sync_stop_recheck_ms"`
	ImplicitAudio         bool   `toml:"implicit_audio"`
}

// Audio contains channel crossfade settings.
type Audio struct {
	FadeOutMS        int     `toml:"fade_out_ms"`
	FadeInMS         int     `toml:"fade_in_ms"`
	TickMS           int     `toml:"tick_ms"`
	BackgroundVolume float64 `toml:"background_volume"`
	AmbientVolume    float64 `toml:"ambient_volume"`
}

// Window contains page window settings.
type Window struct {
	Radius           int `toml:"radius"`
	ExitTransitionMS int `toml:"exit_transition_ms"`
}

// Remote contains the tooling bridge settings.
type Remote struct {
	Enabled    bool   `toml:"enabled"`
	Bind       string `toml:"bind"`
	EnableCORS bool   `toml:"enable_cors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for panelreel.
//
// Configuration sections by subsystem:
//   - Paths: client state and log directories
//   - Content: scene/media snapshot source (directory or HTTP backend)
//   - Assets: retrieval path templates for the four asset namespaces
//   - Playback: sequencer mode and pacing constants
//   - Audio: background/ambient crossfade windows
//   - Window: page window radius and exit transition
//   - Remote: tooling bridge (HTTP + websocket)
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Content  Content  `toml:"content"`
	Assets   Assets   `toml:"assets"`
	Playback Playback `toml:"playback"`
	Audio    Audio    `toml:"audio"`
	Window   Window   `toml:"window"`
	Remote   Remote   `toml:"remote"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/panelreel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("panelreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ComicMode reports whether the sequencer renders every cue at once.
func (c *Config) ComicMode() bool {
	return c.Playback.Mode == ModeComic
}

// RequestTimeout returns the content fetch timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Content.RequestTimeout) * time.Second
}

// ExitTransition returns the page exit animation duration.
func (c *Config) ExitTransition() time.Duration {
	return msDuration(c.Window.ExitTransitionMS)
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// MS converts a millisecond config value to a duration.
func MS(ms int) time.Duration {
	return msDuration(ms)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
