// Package config loads the server configuration from config.yaml and
// MEDIFLASH_* environment variables, applies defaults and validates the result.
package config
