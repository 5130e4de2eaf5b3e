package tasks

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// MatchThreshold is the minimum title similarity, exclusive, for a candidate to count as a match.
const MatchThreshold = 0.6

// TrackMatcher selects the best catalog candidate for a desired title.
type TrackMatcher struct {
	threshold float64
	metric    strutil.StringMetric
}

// NewTrackMatcher creates a matcher with the given exclusive threshold.
func NewTrackMatcher(threshold float64) *TrackMatcher {
	return &TrackMatcher{threshold: threshold, metric: metrics.NewLevenshtein()}
}

var defaultMatcher = NewTrackMatcher(MatchThreshold)

// BestMatch uses a matcher with [MatchThreshold].
func BestMatch(title, artist string, candidates []models.Track) (*models.MatchResult, bool) {
	return defaultMatcher.BestMatch(title, artist, candidates)
}

// Threshold returns the exclusive similarity threshold.
func (m *TrackMatcher) Threshold() float64 {
	return m.threshold
}

// Score returns the similarity of two titles after normalization. Identical titles score 1.
func (m *TrackMatcher) Score(a, b string) float64 {
	a, b = shared.NormalizeText(a), shared.NormalizeText(b)
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, m.metric)
}

// BestMatch returns the candidate whose title is most similar to title.
//
// The first candidate wins ties. There is no match when candidates is empty or the best score does not exceed
// the threshold. artist is accepted for symmetry with the caller's data and is not scored.
func (m *TrackMatcher) BestMatch(title, artist string, candidates []models.Track) (*models.MatchResult, bool) {
	var (
		best  *models.Track
		score float64
	)

	for i := range candidates {
		s := m.Score(title, candidates[i].Title)
		if best == nil || s > score {
			best = &candidates[i]
			score = s
		}
	}

	if best == nil || score <= m.threshold {
		return nil, false
	}

	return &models.MatchResult{Candidate: *best, Score: score}, true
}
