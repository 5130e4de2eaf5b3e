package tasks

import (
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
)

// ProgressUpdate represents a progress event during an expansion.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	Recommend Phase = iota
	Match
	Complete
)

func (p Phase) String() string {
	switch p {
	case Recommend:
		return "recommend"
	case Match:
		return "match"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

// Outcome of matching one recommendation.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeAdded
	OutcomeAlreadyQueued
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeAdded:
		return "added"
	case OutcomeAlreadyQueued:
		return "already queued"
	case OutcomeNotFound:
		return "not found"
	default:
		return ""
	}
}

// SongProgress is the Data of a [Match] update.
type SongProgress struct {
	Song    models.RecommendedSong
	Outcome Outcome
	Match   *models.MatchResult
}

func recommendUpdate(seeds int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Recommend,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Requesting recommendations from %d seed songs...", seeds),
	}
}

func songUpdate(step, total int, p SongProgress) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s: %s", step, total, p.Song, p.Outcome)
	if p.Match != nil {
		msg = fmt.Sprintf("[%d/%d] %s: %s (%s, %.2f)", step, total, p.Song, p.Outcome, p.Match.Candidate.SpotifyTrackID, p.Match.Score)
	}
	return ProgressUpdate{
		Phase:   Match,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    p,
	}
}

func completeUpdate(result *ExpandResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Added %d, not found %d, queue now %d", len(result.Added), len(result.NotFound), len(result.Queue)),
		Data:    result,
	}
}
