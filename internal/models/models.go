package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mixtape/internal/shared"
)

// Model defines the base interface for all persistent models in the mixtape service.
type Model interface {
	GetID() string        // GetID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Track is a catalog search result. JSON names follow the public API.
type Track struct {
	Title          string  `json:"title"`
	Artist         string  `json:"artist"`
	Album          string  `json:"album,omitempty"`
	SpotifyTrackID string  `json:"spotify_track_id"`
	SpotifyURI     string  `json:"spotify_uri"`
	PreviewURL     *string `json:"preview_url"`
	AlbumArtURL    *string `json:"album_art_url"`
}

// Song is a (title, artist) pair. Seed songs come from the user, recommended songs from the model.
type Song struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Key returns the normalized comparison key for s.
func (s Song) Key() string {
	return shared.NormalizeTrackKey(s.Title, s.Artist)
}

// String formats s as "title by artist".
func (s Song) String() string {
	return fmt.Sprintf("%s by %s", s.Title, s.Artist)
}

// MatchResult is the best catalog candidate for one desired song.
type MatchResult struct {
	Candidate Track   `json:"candidate"`
	Score     float64 `json:"score"`
}

// Analysis holds the attributes extracted from a mixtape prompt.
//
// Error is set instead of returning an error so handlers can still answer the client.
type Analysis struct {
	Mood     string   `json:"mood"`
	Language string   `json:"language"`
	Genre    string   `json:"genre"`
	Keywords []string `json:"keywords"`
	Error    string   `json:"error,omitempty"`
}

// Failed reports whether the analysis carries an error tag.
func (a Analysis) Failed() bool {
	return a.Error != ""
}

// User is an account that owns a mixtape queue.
type User struct {
	ID           string    `json:"id"`
	Sequence     int       `json:"-"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Created      time.Time `json:"-"`
}

// NewUser creates a user with the given credentials. ID and sequence are assigned on insert.
func NewUser(username, email, passwordHash string) *User {
	return &User{
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
		Created:      time.Now().UTC(),
	}
}

func (u *User) GetID() string        { return u.ID }
func (u *User) CreatedAt() time.Time { return u.Created }

// Validate checks required fields.
func (u *User) Validate() error {
	if u.Username == "" || u.Email == "" || u.PasswordHash == "" {
		return fmt.Errorf("%w: username, email and password are required", shared.ErrValidation)
	}
	return nil
}

// QueueEntry is one track in a user's mixtape. Entries are never mutated after insert.
type QueueEntry struct {
	ID             string    `json:"-"`
	Sequence       int       `json:"-"`
	UserID         string    `json:"-"`
	SpotifyTrackID string    `json:"spotify_track_id"`
	Title          string    `json:"title"`
	Artist         string    `json:"artist"`
	SpotifyURI     string    `json:"spotify_uri"`
	PreviewURL     *string   `json:"preview_url"`
	AlbumArtURL    *string   `json:"album_art_url"`
	AddedAt        time.Time `json:"added_at"`
}

// NewQueueEntry builds an entry for userID from a catalog track.
func NewQueueEntry(userID string, t Track) *QueueEntry {
	return &QueueEntry{
		UserID:         userID,
		SpotifyTrackID: t.SpotifyTrackID,
		Title:          t.Title,
		Artist:         t.Artist,
		SpotifyURI:     t.SpotifyURI,
		PreviewURL:     t.PreviewURL,
		AlbumArtURL:    t.AlbumArtURL,
		AddedAt:        time.Now().UTC(),
	}
}

func (q *QueueEntry) GetID() string        { return q.ID }
func (q *QueueEntry) CreatedAt() time.Time { return q.AddedAt }

// Validate checks the fields the queue requires.
func (q *QueueEntry) Validate() error {
	var missing []string
	if q.UserID == "" {
		missing = append(missing, "user_id")
	}
	if q.SpotifyTrackID == "" {
		missing = append(missing, "spotify_track_id")
	}
	if q.Title == "" {
		missing = append(missing, "title")
	}
	if q.Artist == "" {
		missing = append(missing, "artist")
	}
	if q.SpotifyURI == "" {
		missing = append(missing, "spotify_uri")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", shared.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// RecommendedSong is a [Song] produced by the model. Treat it as untrusted input.
type RecommendedSong = Song

// QueueExport is a snapshot of one user's queue for writing to disk.
type QueueExport struct {
	Owner      string       `json:"owner"`
	ExportedAt time.Time    `json:"exported_at"`
	Entries    []QueueEntry `json:"entries"`
}

// CoverURL returns the album art of the first entry that has one.
func (e QueueExport) CoverURL() string {
	for _, entry := range e.Entries {
		if entry.AlbumArtURL != nil && *entry.AlbumArtURL != "" {
			return *entry.AlbumArtURL
		}
	}
	return ""
}
