// Package repository defines the data access interfaces for scopekit.
//
// This package provides the repository abstraction layer for persisting
// and retrieving encoded scope trees. The actual implementation is in the
// sqlite subpackage.
//
// # Repository Interface
//
// The Repository interface stores snapshots under string keys. A snapshot
// carries its encoded payload, the format it was encoded with, and a content
// fingerprint so callers can skip rewriting unchanged trees.
//
// # SQLite Implementation
//
// The sqlite implementation uses modernc.org/sqlite with WAL mode. It handles:
//
// - Upsert by key, keeping the original creation time
// - Listing metadata without loading payloads
// - Schema migration on startup
//
// # Testing
//
// The sqlite repository is tested with in-memory databases
package repository
