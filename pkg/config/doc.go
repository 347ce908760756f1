// Package config loads the relay configuration from YAML, applies environment
// overrides and validates it.
package config
