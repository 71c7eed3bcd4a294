// Package domain defines the attribute store used by game objects.
//
// Object types expose their data members as named, introspectable fields kept
// in a tree. Some fields are backed by memory the tree owns. Others alias the
// object's own members. Fields can also be added at run time.
//
// # Datum
//
// Datum is a resizable array whose element kind (integer, float, string,
// pointer, vector, matrix or table) is chosen once at run time. It either owns
// its storage or aliases storage supplied by the caller with SetStorage.
// Aliased storage can be read and written through but never grown, shrunk or
// released. Typed access goes through the generic functions Get, Set, Push,
// Assign, Remove, IndexOf and Values.
//
// # Scope
//
// Scope is an ordered table of named datums. Table-kind datums hold child
// nodes, so scopes form a tree in which every child has exactly one parent.
// Adopt and Orphan move nodes between parents; Search resolves a name up the
// parent chain.
//
// # Attributed
//
// Attributed is embedded by object types that want a self-populating scope.
// The embedding type implements Reflected:
//
//   - DeclareSignatures names the prescribed fields, once per concrete type
//   - Populate adds them to each new instance with Internal, External or Scope
//   - UpdateExternalStorage re-points external fields with Rebind
//
// Init runs the lifecycle on a new instance. Copy and Move duplicate or
// transfer an instance. External fields that alias the source's members are
// moved to the same members of the destination before UpdateExternalStorage
// runs, and the operation fails if any still alias the source afterwards. A
// type only needs UpdateExternalStorage for storage outside its own struct.
//
// # Text forms
//
// Integers, floats, strings, vectors and matrices have canonical text forms
// (ToString, SetFromString) used by importers and snapshot codecs. Pointer and
// table values have none.
//
// # Design Principles
//
// - No database or external dependencies
// - Failures wrap the sentinel errors in errors.go and leave the target unchanged
// - Single-threaded values; only the signature registry is shared and locked
package domain
