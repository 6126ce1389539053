// Package config provides the micropay-server configuration.
//
//   - types.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation before startup
//   - sanitize.go: masking for log output
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// MICROPAY_* environment variables and command line flags.
package config
