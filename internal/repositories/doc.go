// Package repositories implements SQL persistence for the server's domain entities.
//
// Every query is written with "?" placeholders and passed through [shared.Rebind], so the same repositories run on
// SQLite (mattn/go-sqlite3 or modernc.org/sqlite) and Postgres (lib/pq).
// Users and notifications support soft deletes via deleted_at timestamps and are excluded from queries once deleted.
//
// Key Implementations:
//   - [UserRepository] : identities provisioned from verified tokens, looked up by subject
//   - [ProgressRepository] : continue-watching rows keyed by (user, kind, subject)
//   - [NotificationRepository] : admin announcements with per-user read markers
//   - [StatisticsRepository] : usage counters and the unique visitor table
//
// Sequence numbers give a stable creation order independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table counters stored in dedicated sequence tables.
package repositories
