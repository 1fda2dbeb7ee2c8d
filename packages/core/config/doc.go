// Package config loads qxhr settings from YAML or JSON files and applies
// them to client defaults.
//
// It provides functionality for:
//   - Finding .qxhr.yaml, .qxhr.yml or qxhr.config.json in a directory
//   - Default configuration values and merging of overrides
//   - Watching a config file and reloading it on change
package config
