package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// QueueRepository persists mixtape queue entries.
//
// (user_id, spotify_track_id) is unique, so a track appears at most once per queue.
type QueueRepository struct {
	db *sql.DB
}

// NewQueueRepository creates a new [QueueRepository] with the given database connection
func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Add appends entry to its user's queue.
//
// Returns [shared.ErrConflict] when the track is already queued for that user.
func (r *QueueRepository) Add(entry *models.QueueEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	sequence, err := NextSequence(r.db, "mixtape_songs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO mixtape_songs (
			id, sequence, user_id, spotify_track_id, title, artist, spotify_uri, preview_url, album_art_url, added_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id, sequence, entry.UserID, entry.SpotifyTrackID, entry.Title, entry.Artist,
		entry.SpotifyURI, nullString(entry.PreviewURL), nullString(entry.AlbumArtURL), entry.AddedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: song already in mixtape queue", shared.ErrConflict)
		}
		if foreignKeyViolation(err) {
			return fmt.Errorf("%w: user %s", shared.ErrNotFound, entry.UserID)
		}
		return fmt.Errorf("failed to insert queue entry: %w", err)
	}

	entry.ID = id
	entry.Sequence = sequence
	return nil
}

// Exists reports whether trackID is already queued for userID.
func (r *QueueRepository) Exists(userID, trackID string) (bool, error) {
	var n int
	err := r.db.QueryRow(
		"SELECT COUNT(1) FROM mixtape_songs WHERE user_id = ? AND spotify_track_id = ?", userID, trackID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query queue entry: %w", err)
	}
	return n > 0, nil
}

// Remove deletes trackID from userID's queue.
//
// Returns [shared.ErrNotFound] when no such entry exists.
func (r *QueueRepository) Remove(userID, trackID string) error {
	result, err := r.db.Exec("DELETE FROM mixtape_songs WHERE user_id = ? AND spotify_track_id = ?", userID, trackID)
	if err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: song not in mixtape queue", shared.ErrNotFound)
	}

	return nil
}

// List returns userID's queue in insertion order.
func (r *QueueRepository) List(userID string) ([]models.QueueEntry, error) {
	query := `
		SELECT id, sequence, user_id, spotify_track_id, title, artist, spotify_uri, preview_url, album_art_url, added_at
		FROM mixtape_songs
		WHERE user_id = ?
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	defer rows.Close()

	entries := []models.QueueEntry{}
	for rows.Next() {
		var (
			entry       models.QueueEntry
			previewURL  sql.NullString
			albumArtURL sql.NullString
		)

		err := rows.Scan(
			&entry.ID, &entry.Sequence, &entry.UserID, &entry.SpotifyTrackID, &entry.Title, &entry.Artist,
			&entry.SpotifyURI, &previewURL, &albumArtURL, &entry.AddedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}

		entry.PreviewURL = stringPtr(previewURL)
		entry.AlbumArtURL = stringPtr(albumArtURL)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
