// Package collect finds the source files that are eligible for analysis in a
// checked-out workspace.
//
// Only files below the source directory (usually "src") of an allowed package
// root are considered. A file is kept when its extension is allowed and its
// relative path contains none of the excluded substrings, which is how
// ".test." and ".d.ts" files are filtered out. Output order is stable across
// runs regardless of how the filesystem returns directory entries.
package collect
