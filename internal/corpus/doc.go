// Package corpus implements the persistent malware-sample store behind a
// narrow Store interface, allowing in-memory substitution in tests.
//
// The SQLite implementation keeps each sample's text, normalized tokens,
// embedding vector (as a little-endian float32 blob), and metadata in a
// single table. Vector similarity search deserializes candidate vectors
// and computes cosine similarity in Go, which is adequate for corpora in
// the tens of thousands of samples.
//
// Two SQLite drivers are supported behind build tags:
//   - modernc.org/sqlite (pure Go, default)
//   - mattn/go-sqlite3 (cgo, build with -tags cgo_sqlite)
package corpus
