// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config file. It provides typed
// access to the settings of the poster service and the offline CLI.
package config
