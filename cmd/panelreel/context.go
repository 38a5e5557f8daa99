package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"panelreel/internal/clientstate"
	"panelreel/internal/config"
	"panelreel/internal/content"
	"panelreel/internal/logging"
	"panelreel/internal/scene"
)

type commandContext struct {
	configFlag  *string
	envFileFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, envFileFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		envFileFlag: envFileFlag,
	}
}

// loadEnvFile applies --env-file. Variables already set in the environment
// win.
func (c *commandContext) loadEnvFile() error {
	if c.envFileFlag == nil {
		return nil
	}
	path := strings.TrimSpace(*c.envFileFlag)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) withStore(fn func(*clientstate.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := clientstate.Open(cfg)
	if err != nil {
		return fmt.Errorf("open client state: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// loader builds a content loader over the configured source.
func (c *commandContext) loader() (*content.Loader, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	src, err := content.NewSource(cfg)
	if err != nil {
		return nil, err
	}
	return content.NewLoader(src, content.NewCache(), logging.NewNop()), nil
}

// volumeArgs resolves --series/--volume against the configured defaults.
func (c *commandContext) volumeArgs(series, volume string) (string, string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(series) == "" {
		series = cfg.Content.Series
	}
	if strings.TrimSpace(volume) == "" {
		volume = cfg.Content.Volume
	}
	if series == "" || volume == "" {
		return "", "", fmt.Errorf("series and volume are required (flags or [content] series/volume)")
	}
	return series, volume, nil
}

func (c *commandContext) pages(ctx context.Context, loader *content.Loader, series, volume string) ([]scene.PageRef, error) {
	pages, err := loader.Pages(ctx, series, volume)
	if err != nil {
		return nil, fmt.Errorf("list pages of %s/%s: %w", series, volume, err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("volume %s/%s has no pages", series, volume)
	}
	return pages, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
