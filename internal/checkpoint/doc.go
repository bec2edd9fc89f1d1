// Package checkpoint persists per-(revision, model) result artifacts.
//
// A [Writer] flushes one batch as an indented JSON array named
// <prefix>_<sanitized-revision>_<alias>.json. The file is written to a
// temporary name, synced and renamed into place, so an artifact is always
// either the previous complete version or the new one. Results are sorted by
// file path, which makes repeated runs over the same inputs byte-identical.
//
// A [Store] lists, loads and summarizes artifacts in an output directory for
// reporting.
package checkpoint
