// Package pipeline drives a full multi-revision, multi-model run.
//
// The run is planned up front as an ordered list of [Stage] values, one per
// (revision, model) pair. Revisions are processed strictly in sequence: the
// workspace is checked out, eligible files are collected once, then each
// model stage analyzes those files and flushes its own checkpoint before its
// results are dropped. Up to ModelParallelism stages of the same revision may
// run at once.
//
// Failures are isolated: a checkout or collection failure fails only that
// revision, and a checkpoint failure fails only that stage. The run goes on
// and [Controller.Run] returns every failure joined into one error.
package pipeline
