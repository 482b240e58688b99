package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateBuild(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.RecipesRoot) == "" {
		return errors.New("paths.recipes_root must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateBuild() error {
	if strings.ContainsAny(c.Build.Binary, " \t") {
		return fmt.Errorf("build.binary %q must be a bare executable name or path, not a command line", c.Build.Binary)
	}
	for _, target := range []string{c.Build.RequiresTarget, c.Build.ProvidesTarget} {
		if strings.ContainsAny(target, " \t/") {
			return fmt.Errorf("build target %q must be a plain target name", target)
		}
	}
	if c.Build.RequiresTarget == c.Build.ProvidesTarget {
		return errors.New("build.requires_target and build.provides_target must differ")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
