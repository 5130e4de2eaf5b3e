package tasks

import (
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
	mtesting "github.com/desertthunder/mixtape/internal/testing"
)

func TestTrackMatcher(t *testing.T) {
	t.Run("Score", func(t *testing.T) {
		m := NewTrackMatcher(MatchThreshold)

		tests := []struct {
			name string
			a, b string
			want float64
		}{
			{"identical", "Blue in Green", "Blue in Green", 1},
			{"case and whitespace", "  blue IN green ", "Blue in Green", 1},
			{"both empty", "", "", 1},
			{"one empty", "abc", "", 0},
			{"two edits in ten", "abcdefghij", "abcdefghXY", 0.8},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if got := m.Score(tt.a, tt.b); got != tt.want {
					t.Errorf("Score(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
				}
				if got := m.Score(tt.b, tt.a); got != tt.want {
					t.Errorf("Score is not symmetric for %q, %q: %v", tt.b, tt.a, got)
				}
			})
		}
	})

	t.Run("Threshold", func(t *testing.T) {
		tests := []struct {
			name      string
			candidate string
			wantMatch bool
		}{
			{"exactly at threshold", "abcdefWXYZ", false},
			{"just above threshold", "abcdefgXYZ", true},
			{"below threshold", "abcdeVWXYZ", false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, ok := BestMatch("abcdefghij", "", []models.Track{mtesting.Track("id", tt.candidate, "a")})
				if ok != tt.wantMatch {
					t.Errorf("expected match=%v for %q", tt.wantMatch, tt.candidate)
				}
			})
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if _, ok := BestMatch("Song", "Artist", nil); ok {
			t.Error("expected no match for empty candidates")
		}
	})

	t.Run("HighestWins", func(t *testing.T) {
		candidates := []models.Track{
			mtesting.Track("1", "So What (Live)", "Miles Davis"),
			mtesting.Track("2", "So What", "Miles Davis"),
			mtesting.Track("3", "So Whatt", "Miles Davis"),
		}

		result, ok := BestMatch("so what", "Miles Davis", candidates)
		if !ok {
			t.Fatal("expected a match")
		}
		if result.Candidate.SpotifyTrackID != "2" {
			t.Errorf("expected exact title to win, got %s", result.Candidate.SpotifyTrackID)
		}
		if result.Score != 1 {
			t.Errorf("expected score 1, got %v", result.Score)
		}
	})

	t.Run("TieKeepsFirst", func(t *testing.T) {
		candidates := []models.Track{
			mtesting.Track("first", "Hello", "Artist A"),
			mtesting.Track("second", "hello", "Artist B"),
		}

		result, ok := BestMatch("Hello", "Artist B", candidates)
		if !ok {
			t.Fatal("expected a match")
		}
		if result.Candidate.SpotifyTrackID != "first" {
			t.Errorf("expected first candidate on tie, got %s", result.Candidate.SpotifyTrackID)
		}
	})

	t.Run("ArtistIgnored", func(t *testing.T) {
		result, ok := BestMatch("Yesterday", "The Beatles", []models.Track{mtesting.Track("x", "Yesterday", "Someone Else")})
		if !ok || result.Candidate.Artist != "Someone Else" {
			t.Errorf("expected title-only match, got %+v ok=%v", result, ok)
		}
	})

	t.Run("CustomThreshold", func(t *testing.T) {
		m := NewTrackMatcher(0.9)
		if m.Threshold() != 0.9 {
			t.Errorf("expected threshold 0.9, got %v", m.Threshold())
		}
		if _, ok := m.BestMatch("abcdefghij", "", []models.Track{mtesting.Track("id", "abcdefghXY", "a")}); ok {
			t.Error("expected 0.8 to fall below a 0.9 threshold")
		}
	})
}
