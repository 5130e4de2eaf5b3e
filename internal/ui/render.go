package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/tasks"
)

var (
	labelStyle = NewBold("#7D56F4").Width(10)
	indexStyle = NewStyle("#626262").Width(4).Align(lipgloss.Right).MarginRight(1)
)

func field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// Analysis renders the attributes extracted for prompt.
func Analysis(prompt string, a models.Analysis) string {
	if a.Failed() {
		return Error("Analysis failed: " + a.Error)
	}

	keywords := strings.Join(a.Keywords, ", ")
	if keywords == "" {
		keywords = Help("none")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		Title(fmt.Sprintf("Mixtape for %q", prompt)),
		field("Mood", a.Mood),
		field("Language", a.Language),
		field("Genre", a.Genre),
		field("Keywords", keywords),
	)
}

func trackLine(i int, title, artist, id string) string {
	return indexStyle.Render(fmt.Sprintf("%d.", i+1)) + fmt.Sprintf("%s - %s %s", artist, title, Help(id))
}

// Tracks renders catalog search results.
func Tracks(tracks []models.Track) string {
	if len(tracks) == 0 {
		return Warn("No tracks found")
	}

	lines := []string{Title(fmt.Sprintf("%d tracks", len(tracks)))}
	for i, t := range tracks {
		lines = append(lines, trackLine(i, t.Title, t.Artist, t.SpotifyTrackID))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Queue renders entries in insertion order.
func Queue(owner string, entries []models.QueueEntry) string {
	if len(entries) == 0 {
		return Warn(fmt.Sprintf("%s's mixtape is empty", owner))
	}

	lines := []string{Title(fmt.Sprintf("%s's mixtape (%d)", owner, len(entries)))}
	for i, e := range entries {
		lines = append(lines, trackLine(i, e.Title, e.Artist, e.SpotifyTrackID))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Progress renders one expansion update, colored by outcome.
func Progress(u tasks.ProgressUpdate) string {
	switch u.Phase {
	case tasks.Recommend:
		return Help(u.Message)
	case tasks.Complete:
		return OK(u.Message)
	}

	song, ok := u.Data.(tasks.SongProgress)
	if !ok {
		return u.Message
	}

	switch song.Outcome {
	case tasks.OutcomeAdded:
		return OK(u.Message)
	case tasks.OutcomeNotFound:
		return Warn(u.Message)
	default:
		return Help(u.Message)
	}
}

// ExpandSummary renders the songs added and the recommendations that had no match.
func ExpandSummary(result *tasks.ExpandResult) string {
	lines := []string{OK(fmt.Sprintf("✓ Added %d songs", len(result.Added)))}
	for i, t := range result.Added {
		lines = append(lines, trackLine(i, t.Title, t.Artist, t.SpotifyTrackID))
	}

	if len(result.NotFound) > 0 {
		lines = append(lines, "", Warn(fmt.Sprintf("No match for %d recommendations:", len(result.NotFound))))
		for _, s := range result.NotFound {
			lines = append(lines, fmt.Sprintf("  • %s", s))
		}
	}

	lines = append(lines, "", Help(fmt.Sprintf("Queue now has %d songs", len(result.Queue))))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
