// Package analysis turns source files into code-smell results.
//
// An [Adapter] makes one inference call per prompt and converts the reply into
// an [Outcome]: either a JSON object extracted from the model text, or an
// error. A [Scheduler] runs a batch of [Task] values on a bounded worker pool;
// every task ends as exactly one [Result] or as a skip (files whose trimmed
// content is shorter than the configured minimum are skipped). One task's
// failure, timeout or panic never affects its siblings.
//
// [DecodeReport] reads the stored analysis leniently for reporting: any JSON
// value in a string field is accepted and the category is normalized to the
// five Refactoring Guru groups.
package analysis
