// Package repositories implements SQLite persistence for users and their mixtape queues.
//
// Key Implementations:
//   - [UserRepository] : account persistence with username and email lookups
//   - [QueueRepository] : per-user mixtape queue keyed by (user, catalog track)
//
// Rows carry a per-table sequence number in addition to their UUID. Queue listings are ordered by it, which gives
// insertion order independent of timestamp resolution. The [NextSequence] function atomically increments per-table
// sequence counters in dedicated sequence tables.
package repositories
