// Package config loads botwatch's YAML configuration.
//
// ${VAR} references are expanded from the environment before parsing, and .env files
// are consulted for variables the environment does not already define.
package config
