// Package store provides SQLite-backed durable storage for explorations.
//
// The store is an append-only log with:
//   - Sessions: one row per exploration (model hash, limits, outcome)
//   - Semistates: the semistates a session reported, by search order
//
// # Critical Patterns
//
// Logical time:
//   - All ordering uses seq INTEGER (search order), NEVER timestamps
//   - Session IDs are UUIDv7 and sort by creation
//
// Deterministic query results:
//   - Semistate queries use ORDER BY seq ASC
//   - Session queries use ORDER BY id COLLATE BINARY ASC
//
// Idempotent writes:
//   - ON CONFLICT DO NOTHING on every insert
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Semistate bodies are canonical JSON from package system; state_id is
// the domain-separated content hash of the same encoding.
package store
