// Package models defines domain entities and persistence interfaces for LunaStream.
//
// The package contains two categories of types:
//
// 1. Value types shared by stores, providers and the HTTP API
//   - [WatchProgressEntry] : one identity's progress on one title
//   - [Title] : a catalog result tagged with its [TitleKind] at ingestion
//   - [Match], [Stream] : live sports listings and candidate embeds
//   - [Settings] : device-local display preferences
//
// 2. Persistent Entities: database-backed models with full lifecycle management
//   - [User] : identities provisioned from verified tokens
//   - [Notification] : admin-authored announcements
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
