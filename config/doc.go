// Package config loads service settings from a YAML file and TRV_* environment
// variables, the latter taking precedence.
package config
