package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeContent(); err != nil {
		return err
	}
	c.normalizeAssets()
	c.normalizePlayback()
	c.normalizeAudio()
	c.normalizeWindow()
	c.normalizeRemote()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeContent() error {
	c.Content.Source = strings.ToLower(strings.TrimSpace(c.Content.Source))
	if c.Content.Source == "" {
		c.Content.Source = defaultContentSource
	}
	if strings.TrimSpace(c.Content.Dir) != "" {
		dir, err := expandPath(strings.TrimSpace(c.Content.Dir))
		if err != nil {
			return fmt.Errorf("content.dir: %w", err)
		}
		c.Content.Dir = dir
	}
	c.Content.BaseURL = strings.TrimRight(strings.TrimSpace(c.Content.BaseURL), "/")
	c.Content.APIToken = strings.TrimSpace(c.Content.APIToken)
	if c.Content.APIToken == "" {
		if value, ok := os.LookupEnv("PANELREEL_API_TOKEN"); ok {
			c.Content.APIToken = strings.TrimSpace(value)
		}
	}
	if c.Content.RequestTimeout <= 0 {
		c.Content.RequestTimeout = defaultRequestTimeout
	}
	c.Content.Series = strings.TrimSpace(c.Content.Series)
	c.Content.Volume = strings.TrimSpace(c.Content.Volume)
	return nil
}

func (c *Config) normalizeAssets() {
	c.Assets.BaseURL = strings.TrimRight(strings.TrimSpace(c.Assets.BaseURL), "/")
	defaultString(&c.Assets.PageTemplate, defaultPageTemplate)
	defaultString(&c.Assets.VolumeTemplate, defaultVolumeTemplate)
	defaultString(&c.Assets.SeriesTemplate, defaultSeriesTemplate)
	defaultString(&c.Assets.GlobalTemplate, defaultGlobalTemplate)
	c.Assets.AudioExtension = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Assets.AudioExtension)), ".")
	if c.Assets.AudioExtension == "" {
		c.Assets.AudioExtension = defaultAudioExtension
	}
}

func (c *Config) normalizePlayback() {
	c.Playback.Mode = strings.ToLower(strings.TrimSpace(c.Playback.Mode))
	switch c.Playback.Mode {
	case "", "sequential":
		c.Playback.Mode = defaultPlaybackMode
	case "immediate":
		c.Playback.Mode = ModeComic
	}
	defaultInt(&c.Playback.AudioSafetyFallbackMS, defaultAudioSafetyFallbackMS)
	defaultInt(&c.Playback.TextMinMS, defaultTextMinMS)
	defaultInt(&c.Playback.SyncStopRecheckMS, defaultSyncStopRecheckMS)
	if c.Playback.InterCuePauseMS < 0 {
		c.Playback.InterCuePauseMS = 0
	}
	if c.Playback.AudioSafetyMarginMS < 0 {
		c.Playback.AudioSafetyMarginMS = 0
	}
}

func (c *Config) normalizeAudio() {
	defaultInt(&c.Audio.TickMS, defaultFadeTickMS)
	if c.Audio.FadeOutMS < 0 {
		c.Audio.FadeOutMS = 0
	}
	if c.Audio.FadeInMS < 0 {
		c.Audio.FadeInMS = 0
	}
}

func (c *Config) normalizeWindow() {
	if c.Window.Radius < 0 {
		c.Window.Radius = defaultWindowRadius
	}
	if c.Window.ExitTransitionMS < 0 {
		c.Window.ExitTransitionMS = 0
	}
}

func (c *Config) normalizeRemote() {
	c.Remote.Bind = strings.TrimSpace(c.Remote.Bind)
	if c.Remote.Bind == "" {
		c.Remote.Bind = defaultRemoteBind
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func defaultString(target *string, fallback string) {
	*target = strings.TrimSpace(*target)
	if *target == "" {
		*target = fallback
	}
}

func defaultInt(target *int, fallback int) {
	if *target <= 0 {
		*target = fallback
	}
}
