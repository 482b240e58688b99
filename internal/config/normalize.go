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
	c.normalizeBuild()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.RecipesRoot) == "" {
		c.Paths.RecipesRoot = defaultRecipesRoot
	}
	if value, ok := os.LookupEnv("COOKBOOK_RECIPES"); ok && strings.TrimSpace(value) != "" {
		c.Paths.RecipesRoot = value
	}
	if c.Paths.RecipesRoot, err = expandPath(c.Paths.RecipesRoot); err != nil {
		return fmt.Errorf("paths.recipes_root: %w", err)
	}
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

func (c *Config) normalizeBuild() {
	c.Build.Binary = strings.TrimSpace(c.Build.Binary)
	if c.Build.Binary == "" {
		c.Build.Binary = defaultBuildBinary
	}
	c.Build.RequiresTarget = strings.TrimSpace(c.Build.RequiresTarget)
	if c.Build.RequiresTarget == "" {
		c.Build.RequiresTarget = defaultRequiresTarget
	}
	c.Build.ProvidesTarget = strings.TrimSpace(c.Build.ProvidesTarget)
	if c.Build.ProvidesTarget == "" {
		c.Build.ProvidesTarget = defaultProvidesTarget
	}
	if c.Build.TimeoutSeconds <= 0 {
		c.Build.TimeoutSeconds = defaultBuildTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
