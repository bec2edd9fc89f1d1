// Package redact removes secrets from file content before it is sent to an
// inference backend.
//
// Detection uses named regex rules covering private key blocks, JWTs, cloud
// and provider tokens, credentials embedded in connection strings, and
// quoted assignments to secret-looking keys. Each match becomes a
// [REDACTED:<rule>] marker so the model still sees that something was there.
//
// Path-based redaction withholds whole files whose relative path matches a
// configured glob.
package redact
