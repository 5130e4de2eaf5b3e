// Package models defines domain entities for the mixtape service.
//
// The package contains two categories of types:
//
// 1. Transient values, owned by the request that produced them:
//   - [Track] : a catalog search result
//   - [Song] : a (title, artist) pair supplied by a user or recommended by the model
//   - [MatchResult] : the winning candidate for one desired song
//   - [Analysis] : structured attributes distilled from a free-text prompt
//
// 2. Persistent entities, stored by the repositories package:
//   - [User] : an account owning a queue
//   - [QueueEntry] : one track in a user's mixtape queue, unique per (user, catalog track)
//
// Persistent entities implement [Model], which provides identity, timestamps and validation.
package models
