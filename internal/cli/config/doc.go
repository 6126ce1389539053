// Package config provides the micropay-client configuration
// (~/.micropay/client.yaml, MICROPAY_CLIENT_* environment variables and
// command line flags, in rising priority).
package config
