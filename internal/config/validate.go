package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateContent(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateAssets(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateContent() error {
	switch c.Content.Source {
	case SourceDir:
		if strings.TrimSpace(c.Content.Dir) == "" {
			return errors.New("content.dir must be set when content.source is \"dir\"")
		}
	case SourceHTTP:
		if strings.TrimSpace(c.Content.BaseURL) == "" {
			return errors.New("content.base_url must be set when content.source is \"http\"")
		}
	default:
		return fmt.Errorf("content.source: unsupported value %q (want \"dir\" or \"http\")", c.Content.Source)
	}
	return nil
}

func (c *Config) validatePlayback() error {
	switch c.Playback.Mode {
	case ModeGated, ModeComic:
	default:
		return fmt.Errorf("playback.mode: unsupported value %q (want %q or %q)", c.Playback.Mode, ModeGated, ModeComic)
	}
	if c.Playback.TextPerWordMS < 0 {
		return errors.New("playback.text_per_word_ms must be >= 0")
	}
	if c.Playback.TextBaseMS < 0 {
		return errors.New("playback.text_base_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.BackgroundVolume < 0 || c.Audio.BackgroundVolume > 1 {
		return errors.New("audio.background_volume must be between 0 and 1")
	}
	if c.Audio.AmbientVolume < 0 || c.Audio.AmbientVolume > 1 {
		return errors.New("audio.ambient_volume must be between 0 and 1")
	}
	if c.Audio.TickMS <= 0 {
		return errors.New("audio.tick_ms must be positive")
	}
	return nil
}

func (c *Config) validateAssets() error {
	for key, tmpl := range map[string]string{
		"assets.page_template":   c.Assets.PageTemplate,
		"assets.volume_template": c.Assets.VolumeTemplate,
		"assets.series_template": c.Assets.SeriesTemplate,
		"assets.global_template": c.Assets.GlobalTemplate,
	} {
		if !strings.Contains(tmpl, "{file}") {
			return fmt.Errorf("%s must reference {file}", key)
		}
	}
	return nil
}
