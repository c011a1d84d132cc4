// Package config holds the service configuration: defaults, the optional
// YAML configuration file, and validation.
package config
