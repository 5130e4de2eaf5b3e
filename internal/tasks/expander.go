package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	// MinSeedSongs is the fewest seed songs an expansion accepts.
	MinSeedSongs = 4
	// RecommendationCount is the number of songs requested from the model.
	RecommendationCount = 10
	// RecommendationTemperature is the sampling temperature for the recommendation call.
	RecommendationTemperature float32 = 0.7
)

const recommendationInstruction = "You are a music playlist generator."

// PlaylistExpander grows a user's queue with model recommendations matched against the catalog.
type PlaylistExpander struct {
	catalog   services.Catalog
	completer services.Completer
	store     QueueStore
	matcher   *TrackMatcher
	minSeeds  int
	count     int
	logger    *log.Logger
}

// ExpanderOption customizes a [PlaylistExpander].
type ExpanderOption func(*PlaylistExpander)

// WithMatcher replaces the default [TrackMatcher].
func WithMatcher(m *TrackMatcher) ExpanderOption {
	return func(e *PlaylistExpander) { e.matcher = m }
}

// WithMinSeedSongs overrides [MinSeedSongs].
func WithMinSeedSongs(n int) ExpanderOption {
	return func(e *PlaylistExpander) { e.minSeeds = n }
}

// WithRecommendationCount overrides [RecommendationCount].
func WithRecommendationCount(n int) ExpanderOption {
	return func(e *PlaylistExpander) { e.count = n }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) ExpanderOption {
	return func(e *PlaylistExpander) { e.logger = l }
}

// NewPlaylistExpander creates an expander over the given catalog, model and queue.
func NewPlaylistExpander(catalog services.Catalog, completer services.Completer, store QueueStore, opts ...ExpanderOption) *PlaylistExpander {
	e := &PlaylistExpander{
		catalog:   catalog,
		completer: completer,
		store:     store,
		matcher:   defaultMatcher,
		minSeeds:  MinSeedSongs,
		count:     RecommendationCount,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithPrefix("expander")
	return e
}

// Expand runs [PlaylistExpander.ExpandWithProgress] without progress reporting.
func (e *PlaylistExpander) Expand(ctx context.Context, userID string, seeds []models.Song) (*ExpandResult, error) {
	return e.ExpandWithProgress(ctx, userID, seeds, nil)
}

// ExpandWithProgress asks the model for recommendations based on seeds and queues the ones the catalog has.
//
// Errors:
//   - [shared.ErrValidation] when there are fewer seeds than the minimum. No external calls are made.
//   - [shared.ErrUpstreamUnavailable] when the model cannot be reached.
//   - [shared.ErrUpstreamFormat] when the reply holds no array of songs.
//
// In all three cases nothing is written. A failure to store one song only moves that song to NotFound.
func (e *PlaylistExpander) ExpandWithProgress(ctx context.Context, userID string, seeds []models.Song, progress chan<- ProgressUpdate) (*ExpandResult, error) {
	if len(seeds) < e.minSeeds {
		return nil, fmt.Errorf("%w: at least %d songs are required", shared.ErrValidation, e.minSeeds)
	}

	sendProgress(progress, recommendUpdate(len(seeds)))

	recommendations, err := e.recommend(ctx, seeds)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		seen[s.Key()] = struct{}{}
	}

	result := &ExpandResult{
		Added:    []models.Track{},
		NotFound: []models.RecommendedSong{},
	}

	total := len(recommendations)
	for i, rec := range recommendations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := e.place(ctx, userID, rec, seen)
		switch p.Outcome {
		case OutcomeAdded:
			result.Added = append(result.Added, p.Match.Candidate)
		case OutcomeNotFound:
			result.NotFound = append(result.NotFound, rec)
		}
		sendProgress(progress, songUpdate(i+1, total, p))
	}

	queue, err := e.store.List(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}
	result.Queue = queue

	e.logger.Info("expanded queue", "user", userID, "recommended", total,
		"added", len(result.Added), "not_found", len(result.NotFound), "queue", len(queue))
	sendProgress(progress, completeUpdate(result))
	return result, nil
}

// place matches one recommendation and queues it when appropriate.
func (e *PlaylistExpander) place(ctx context.Context, userID string, rec models.RecommendedSong, seen map[string]struct{}) SongProgress {
	p := SongProgress{Song: rec, Outcome: OutcomeSkipped}

	title := strings.TrimSpace(rec.Title)
	artist := strings.TrimSpace(rec.Artist)
	if title == "" {
		e.logger.Debug("skipping recommendation without title", "artist", artist)
		return p
	}
	if _, ok := seen[rec.Key()]; ok {
		e.logger.Debug("skipping seed song", "song", rec)
		return p
	}

	candidates := e.catalog.Search(ctx, []string{title, artist})
	if len(candidates) == 0 {
		candidates = e.catalog.Search(ctx, []string{title})
	}

	match, ok := e.matcher.BestMatch(title, artist, candidates)
	if !ok {
		p.Outcome = OutcomeNotFound
		return p
	}
	p.Match = match

	trackID := match.Candidate.SpotifyTrackID
	exists, err := e.store.Exists(userID, trackID)
	if err != nil {
		e.logger.Error("queue lookup failed", "song", rec, "track", trackID, "error", err)
		p.Outcome = OutcomeNotFound
		return p
	}
	if exists {
		p.Outcome = OutcomeAlreadyQueued
		return p
	}

	if err := e.store.Add(models.NewQueueEntry(userID, match.Candidate)); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			p.Outcome = OutcomeAlreadyQueued
			return p
		}
		e.logger.Error("queue insert failed", "song", rec, "track", trackID, "error", err)
		p.Outcome = OutcomeNotFound
		return p
	}

	p.Outcome = OutcomeAdded
	return p
}

// recommend asks the model for songs like seeds and parses its reply.
func (e *PlaylistExpander) recommend(ctx context.Context, seeds []models.Song) ([]models.RecommendedSong, error) {
	content, err := e.completer.Complete(ctx, recommendationInstruction, RecommendationPrompt(seeds, e.count), RecommendationTemperature)
	if err != nil {
		if errors.Is(err, shared.ErrUpstreamUnavailable) || errors.Is(err, shared.ErrUpstreamFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}

	songs, err := ParseRecommendations(content)
	if err != nil {
		e.logger.Error("unusable recommendation reply", "error", err, "length", len(content))
		return nil, err
	}
	return songs, nil
}

// RecommendationPrompt lists seeds one per line as "title by artist" and asks for count songs in the same vein.
func RecommendationPrompt(seeds []models.Song, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Given the following songs, generate a playlist of %d songs that match the vibe, genre, and mood. ", count)
	b.WriteString("Do not include any of the given songs. ")
	b.WriteString("Return a JSON array of objects with 'title' and 'artist'. Songs should be diverse but fit the same mood.\n")
	b.WriteString("Songs:\n")
	for _, s := range seeds {
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	b.WriteString("Playlist:")
	return b.String()
}

// ParseRecommendations extracts the first JSON array of {title, artist} objects embedded in content.
//
// Replies often wrap the array in prose or code fences, and the prose may itself contain brackets. Each
// balanced bracket span is tried in order until one decodes.
func ParseRecommendations(content string) ([]models.RecommendedSong, error) {
	for start := strings.IndexByte(content, '['); start >= 0; {
		span, ok := balancedArray(content[start:])
		if ok {
			var songs []models.RecommendedSong
			if err := json.Unmarshal([]byte(span), &songs); err == nil {
				return songs, nil
			}
		}

		next := strings.IndexByte(content[start+1:], '[')
		if next < 0 {
			break
		}
		start += next + 1
	}

	return nil, fmt.Errorf("%w: no JSON array of songs in reply", shared.ErrUpstreamFormat)
}

// balancedArray returns the prefix of s, which starts with '[', up to its matching ']'.
// Brackets inside JSON strings are ignored.
func balancedArray(s string) (string, bool) {
	var (
		depth    int
		inString bool
		escaped  bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}

	return "", false
}
