package tasks

import (
	"github.com/desertthunder/mixtape/internal/models"
)

// QueueStore is the persistence the expander needs. It is satisfied by repositories.QueueRepository.
type QueueStore interface {
	Exists(userID, trackID string) (bool, error)
	Add(entry *models.QueueEntry) error
	List(userID string) ([]models.QueueEntry, error)
}

// ExpandResult reports what an expansion did.
type ExpandResult struct {
	Added    []models.Track           `json:"added"`         // Tracks newly inserted into the queue, in recommendation order
	NotFound []models.RecommendedSong `json:"not_found"`     // Recommendations with no acceptable catalog match
	Queue    []models.QueueEntry      `json:"mixtape_queue"` // The user's full queue after expansion
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
