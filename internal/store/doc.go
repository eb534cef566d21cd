// Package store provides SQLite-backed storage for cloudrec.
//
// The store keeps three tables:
//   - objects: local objects, one row per (type, primary key)
//   - assets: metadata of binary assets held in the asset directory
//   - exports: the last exported snapshot of every record
//
// # Object bodies
//
// An object body is the canonical JSON of its schema properties, each in
// the tagged form produced by ir.EncodeValue. Relationship properties are
// stored as links rather than nested objects:
//
//	{"type":"link","object_type":"Person","key_property":"id","key":{"type":"string","value":"p1"}}
//	{"type":"links","value":[<link>, ...]}
//
// On read a link becomes a stub object that holds only its primary key,
// which is all the mapper needs to build a reference. A related object
// without a usable key is stored as a link without a key, so it stays
// unresolvable after a round trip.
//
// # Exports
//
// Export rows are keyed by record id (zone name, zone owner, record name).
// UpsertExport leaves a row untouched when its change tag is unchanged, so
// re-exporting an unchanged object is a no-op.
//
// # Deterministic Query Results
//
// All list queries order by seq ASC then key COLLATE BINARY ASC.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
