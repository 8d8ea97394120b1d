// Package archive stores a history of committed recordings in SQLite.
//
// Every successful commit to the sequence store becomes a take with a
// UUIDv7 id. Takes are never modified; the CLI lists them with `history`
// and copies one back into a slot with `restore`.
package archive
