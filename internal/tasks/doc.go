// Package tasks holds the application logic that sits between the providers, the stores and the interfaces.
//
// # Watch Progress
//
// [Reconcile] collapses raw progress records to one entry per (kind, subject):
//   - series entries that both carry an episode compare by (season, episode)
//   - everything else compares by last update time
//   - output is newest first; records without a subject id are dropped
//
// [ProgressEngine] routes reads and writes to exactly one store chosen by [SelectAuthoritativeSource].
// Signing in swaps the device store for the account store. The two are never merged.
// [ProgressEngine.Continue] degrades to an empty list when the store cannot be read.
//
// # Catalog
//
// [CatalogEngine.Search] queries providers concurrently, drops results without artwork and orders the rest
// with [Rank]. [CatalogEngine.Home] fetches the home page rows through a rate-limited worker pool.
//
// # Status Reporting
//
// Long operations accept a chan<- [StatusUpdate]. Sends never block; a full channel drops the update.
package tasks
