// Package output renders run summaries, smell reports and artifact listings.
//
// Run summaries go through a [Writer] selected by [GetWriter] ("text" or
// "json"). Smell reports flatten checkpoint artifacts into [Row] values, one
// per reported smell, and write them as CSV, JSON or a table. Artifact
// listings are always tables.
package output
