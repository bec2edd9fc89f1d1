// Package config loads and validates smellscan configuration.
//
// Precedence (highest to lowest):
//  1. CLI flag overrides
//  2. Environment variables (SMELLSCAN_WORKERS, SMELLSCAN_OUTPUT_DIR, ...;
//     MAX_WORKERS, MAX_TOKENS and LIMIT_FILES_PER_TAG are also honored)
//  3. A .env file in the working directory
//  4. Config file (--config, ./smellscan.yaml, or $XDG_CONFIG_HOME/smellscan/config.yaml)
//  5. Built-in defaults
//
// Use [Load] to obtain a validated [Config]. The result is a plain value that
// callers pass into constructors; nothing in this package holds global state
// besides the validator.
package config
