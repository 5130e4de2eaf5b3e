// Package ui renders command output for the terminal with lipgloss.
//
// Every function returns a string so commands decide where it is written:
//   - [Analysis] : the attributes extracted from a prompt
//   - [Tracks] : catalog search results
//   - [Queue] : a user's mixtape queue in insertion order
//   - [Progress] : one line per expansion progress update
//   - [ExpandSummary] : added and unmatched songs after an expansion
package ui
