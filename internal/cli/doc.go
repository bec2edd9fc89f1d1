// Package cli wires together the Cobra command tree for the smellscan binary.
//
// It defines the root command and all subcommands (run, tags, files, report,
// artifacts, models, config, version), binds flags, reads configuration,
// drives the analysis pipeline, and returns deterministic exit codes.
package cli
