// Package service implements business logic for scopekit.
//
// This package coordinates between the command line and the repository
// layer: it encodes scope trees with the codec package, fingerprints them,
// and stores them as snapshots.
//
// # Services
//
// SnapshotService saves, loads, exports, lists and deletes scope snapshots.
// Saving a tree whose fingerprint matches the stored one is skipped unless
// the service is configured otherwise.
//
// # Event System
//
// SnapshotService publishes events via EventBus. Event types cover saved,
// unchanged and deleted snapshots.
//
// # Design Principles
//
// - Services own business logic and validation
// - Repository pattern for data access
// - Event-driven for observers such as the CLI's verbose mode
package service
