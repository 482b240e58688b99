// Package config loads, normalizes, and validates cookbook configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the COOKBOOK_RECIPES environment
// override for the recipe catalog root. The Config type centralizes every knob
// the CLI needs: catalog location, session state directory, and the build tool
// contract (binary name plus the requires/provides query targets).
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
