package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/shared"
	mtesting "github.com/desertthunder/mixtape/internal/testing"
)

// memQueue is an in-memory [QueueStore] with failure injection.
type memQueue struct {
	mu       sync.Mutex
	entries  []models.QueueEntry
	failAdd  map[string]error
	failList error
	adds     int
}

func newMemQueue() *memQueue {
	return &memQueue{failAdd: map[string]error{}}
}

func (q *memQueue) Exists(userID, trackID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.UserID == userID && e.SpotifyTrackID == trackID {
			return true, nil
		}
	}
	return false, nil
}

func (q *memQueue) Add(entry *models.QueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.adds++
	if err, ok := q.failAdd[entry.SpotifyTrackID]; ok {
		return err
	}
	q.entries = append(q.entries, *entry)
	return nil
}

func (q *memQueue) List(userID string) ([]models.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failList != nil {
		return nil, q.failList
	}
	out := []models.QueueEntry{}
	for _, e := range q.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

var testSeeds = []models.Song{
	{Title: "Blue in Green", Artist: "Miles Davis"},
	{Title: "Naima", Artist: "John Coltrane"},
	{Title: "Peace Piece", Artist: "Bill Evans"},
	{Title: "In a Sentimental Mood", Artist: "Duke Ellington"},
}

func songsJSON(songs []models.Song) string {
	parts := make([]string, len(songs))
	for i, s := range songs {
		parts[i] = fmt.Sprintf(`{"title": %q, "artist": %q}`, s.Title, s.Artist)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func newTestExpander(catalog *mtesting.MockCatalog, completer *mtesting.MockCompleter, store QueueStore) *PlaylistExpander {
	return NewPlaylistExpander(catalog, completer, store, WithLogger(log.New(io.Discard)))
}

// scenarioCatalog answers the 5 findable recommendations of [scenarioRecommendations].
func scenarioCatalog() *mtesting.MockCatalog {
	c := mtesting.NewMockCatalog()
	c.On([]string{"So What", "Miles Davis"}, mtesting.Track("t1", "So What", "Miles Davis"))
	c.On([]string{"Round Midnight", "Thelonious Monk"},
		mtesting.Track("t2x", "Round Midnight (Take 2)", "Thelonious Monk"),
		mtesting.Track("t2", "'Round Midnight", "Thelonious Monk"),
	)
	c.On([]string{"Take Five", "Dave Brubeck"}, mtesting.Track("t3", "Take Five", "The Dave Brubeck Quartet"))
	c.On([]string{"My Favorite Things", "John Coltrane"}, mtesting.Track("t4", "My Favorite Things", "John Coltrane"))
	c.On([]string{"Waltz for Debby", "Bill Evans"}, mtesting.Track("t5", "Waltz For Debby - Live", "Bill Evans Trio"))
	return c
}

var scenarioRecommendations = []models.Song{
	{Title: "So What", Artist: "Miles Davis"},
	{Title: "blue in green", Artist: "MILES DAVIS"},
	{Title: "Round Midnight", Artist: "Thelonious Monk"},
	{Title: "Unfindable Tune", Artist: "Nobody"},
	{Title: "  Naima ", Artist: "John  Coltrane"},
	{Title: "Take Five", Artist: "Dave Brubeck"},
	{Title: "My Favorite Things", Artist: "John Coltrane"},
	{Title: "Peace Piece", Artist: "Bill Evans"},
	{Title: "Lost Recording", Artist: "Ghost"},
	{Title: "Waltz for Debby", Artist: "Bill Evans"},
}

func TestPlaylistExpander(t *testing.T) {
	ctx := context.Background()

	t.Run("Scenario", func(t *testing.T) {
		catalog := scenarioCatalog()
		completer := mtesting.NewMockCompleter("Here you go:\n"+songsJSON(scenarioRecommendations), nil)
		store := newMemQueue()

		result, err := newTestExpander(catalog, completer, store).Expand(ctx, "u1", testSeeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Added) != 5 {
			t.Errorf("expected 5 added, got %d: %+v", len(result.Added), result.Added)
		}
		if len(result.NotFound) != 2 {
			t.Errorf("expected 2 not found, got %d: %+v", len(result.NotFound), result.NotFound)
		}
		if len(result.Queue) != 5 {
			t.Errorf("expected queue of 5, got %d", len(result.Queue))
		}

		wantIDs := []string{"t1", "t2", "t3", "t4", "t5"}
		for i, id := range wantIDs {
			if i < len(result.Added) && result.Added[i].SpotifyTrackID != id {
				t.Errorf("added[%d]: expected %s, got %s", i, id, result.Added[i].SpotifyTrackID)
			}
		}

		if result.NotFound[0].Title != "Unfindable Tune" || result.NotFound[1].Title != "Lost Recording" {
			t.Errorf("unexpected not found order: %+v", result.NotFound)
		}

		if completer.Calls() != 1 {
			t.Errorf("expected 1 completion, got %d", completer.Calls())
		}

		// 5 hits on the first query, 2 misses searched twice, 3 seeds never searched
		if catalog.Calls() != 9 {
			t.Errorf("expected 9 searches, got %d: %v", catalog.Calls(), catalog.Queries)
		}
		for _, q := range catalog.Queries {
			if strings.Contains(strings.ToLower(q), "naima") || strings.Contains(strings.ToLower(q), "blue in green") {
				t.Errorf("seed song was searched: %q", q)
			}
		}
	})

	t.Run("Prompt", func(t *testing.T) {
		completer := mtesting.NewMockCompleter("[]", nil)

		if _, err := newTestExpander(mtesting.NewMockCatalog(), completer, newMemQueue()).Expand(ctx, "u1", testSeeds); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(completer.User, "Blue in Green by Miles Davis\nNaima by John Coltrane\n") {
			t.Errorf("expected seeds one per line, got %q", completer.User)
		}
		if !strings.Contains(completer.User, "playlist of 10 songs") {
			t.Errorf("expected recommendation count in prompt, got %q", completer.User)
		}
		if completer.System != recommendationInstruction {
			t.Errorf("unexpected system instruction %q", completer.System)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		catalog := scenarioCatalog()
		completer := mtesting.NewMockCompleter(songsJSON(scenarioRecommendations), nil)
		store := newMemQueue()
		expander := newTestExpander(catalog, completer, store)

		first, err := expander.Expand(ctx, "u1", testSeeds)
		if err != nil {
			t.Fatalf("first expand failed: %v", err)
		}

		second, err := expander.Expand(ctx, "u1", testSeeds)
		if err != nil {
			t.Fatalf("second expand failed: %v", err)
		}

		if len(second.Added) != 0 {
			t.Errorf("expected nothing added on repeat, got %d", len(second.Added))
		}
		if len(second.Queue) != len(first.Queue) {
			t.Errorf("expected queue to stay at %d, got %d", len(first.Queue), len(second.Queue))
		}
		if len(second.NotFound) != 2 {
			t.Errorf("expected the same 2 not found, got %d", len(second.NotFound))
		}
	})

	t.Run("FallbackSearch", func(t *testing.T) {
		catalog := mtesting.NewMockCatalog()
		catalog.On([]string{"Autumn Leaves"}, mtesting.Track("al", "Autumn Leaves", "Cannonball Adderley"))
		completer := mtesting.NewMockCompleter(`[{"title": "Autumn Leaves", "artist": "Cannonball"}]`, nil)

		result, err := newTestExpander(catalog, completer, newMemQueue()).Expand(ctx, "u1", testSeeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Added) != 1 || result.Added[0].SpotifyTrackID != "al" {
			t.Errorf("expected fallback match to be added, got %+v", result.Added)
		}
		if got := strings.Join(catalog.Queries, "|"); got != "Autumn Leaves Cannonball|Autumn Leaves" {
			t.Errorf("unexpected search sequence %q", got)
		}
	})

	t.Run("TooFewSeeds", func(t *testing.T) {
		catalog := mtesting.NewMockCatalog()
		completer := mtesting.NewMockCompleter("[]", nil)
		store := newMemQueue()

		_, err := newTestExpander(catalog, completer, store).Expand(ctx, "u1", testSeeds[:3])
		if !errors.Is(err, shared.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if completer.Calls() != 0 || catalog.Calls() != 0 || store.adds != 0 {
			t.Errorf("expected no external calls, got completer=%d catalog=%d adds=%d", completer.Calls(), catalog.Calls(), store.adds)
		}
	})

	t.Run("ProseReply", func(t *testing.T) {
		catalog := scenarioCatalog()
		completer := mtesting.NewMockCompleter("I'm sorry, I can't recommend songs right now.", nil)
		store := newMemQueue()

		_, err := newTestExpander(catalog, completer, store).Expand(ctx, "u1", testSeeds)
		if !errors.Is(err, shared.ErrUpstreamFormat) {
			t.Fatalf("expected ErrUpstreamFormat, got %v", err)
		}
		if catalog.Calls() != 0 || store.adds != 0 {
			t.Errorf("expected nothing searched or persisted, got catalog=%d adds=%d", catalog.Calls(), store.adds)
		}
	})

	t.Run("CompleterUnavailable", func(t *testing.T) {
		completer := mtesting.NewMockCompleter("", errors.New("dial tcp: connection refused"))

		_, err := newTestExpander(mtesting.NewMockCatalog(), completer, newMemQueue()).Expand(ctx, "u1", testSeeds)
		if !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
		}
	})

	t.Run("CompleterEmptyReply", func(t *testing.T) {
		completer := mtesting.NewMockCompleter("", fmt.Errorf("%w: no content received", shared.ErrUpstreamFormat))

		_, err := newTestExpander(mtesting.NewMockCatalog(), completer, newMemQueue()).Expand(ctx, "u1", testSeeds)
		if !errors.Is(err, shared.ErrUpstreamFormat) {
			t.Fatalf("expected ErrUpstreamFormat, got %v", err)
		}
	})

	t.Run("StoreFailureDegradesSong", func(t *testing.T) {
		store := newMemQueue()
		store.failAdd["t3"] = errors.New("disk I/O error")
		completer := mtesting.NewMockCompleter(songsJSON(scenarioRecommendations), nil)

		result, err := newTestExpander(scenarioCatalog(), completer, store).Expand(ctx, "u1", testSeeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Added) != 4 {
			t.Errorf("expected 4 added, got %d", len(result.Added))
		}
		if len(result.NotFound) != 3 {
			t.Errorf("expected failed insert to be reported as not found, got %+v", result.NotFound)
		}
	})

	t.Run("ConflictIsNotAFailure", func(t *testing.T) {
		store := newMemQueue()
		store.failAdd["t1"] = fmt.Errorf("%w: song already in mixtape queue", shared.ErrConflict)
		completer := mtesting.NewMockCompleter(songsJSON(scenarioRecommendations[:1]), nil)

		result, err := newTestExpander(scenarioCatalog(), completer, store).Expand(ctx, "u1", testSeeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Added) != 0 || len(result.NotFound) != 0 {
			t.Errorf("expected concurrent insert to count as already queued, got %+v", result)
		}
	})

	t.Run("ListFailure", func(t *testing.T) {
		store := newMemQueue()
		store.failList = errors.New("database is locked")
		completer := mtesting.NewMockCompleter("[]", nil)

		if _, err := newTestExpander(mtesting.NewMockCatalog(), completer, store).Expand(ctx, "u1", testSeeds); err == nil {
			t.Fatal("expected error when the queue cannot be read")
		}
	})

	t.Run("DuplicateRecommendation", func(t *testing.T) {
		recs := []models.Song{{Title: "So What", Artist: "Miles Davis"}, {Title: "So What", Artist: "Miles Davis"}}
		completer := mtesting.NewMockCompleter(songsJSON(recs), nil)

		result, err := newTestExpander(scenarioCatalog(), completer, newMemQueue()).Expand(ctx, "u1", testSeeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Added) != 1 || len(result.Queue) != 1 {
			t.Errorf("expected one insert for a repeated song, got added=%d queue=%d", len(result.Added), len(result.Queue))
		}
	})

	t.Run("EmptyTitleSkipped", func(t *testing.T) {
		catalog := mtesting.NewMockCatalog()
		completer := mtesting.NewMockCompleter(`[{"title": "  ", "artist": "Somebody"}, {"artist": "Nobody"}]`, nil)

		result, err := newTestExpander(catalog, completer, newMemQueue()).Expand(ctx, "u1", testSeeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if catalog.Calls() != 0 || len(result.NotFound) != 0 {
			t.Errorf("expected untitled recommendations to be skipped, got calls=%d not_found=%d", catalog.Calls(), len(result.NotFound))
		}
	})

	t.Run("Options", func(t *testing.T) {
		completer := mtesting.NewMockCompleter("[]", nil)
		expander := NewPlaylistExpander(mtesting.NewMockCatalog(), completer, newMemQueue(),
			WithMinSeedSongs(2), WithRecommendationCount(5), WithMatcher(NewTrackMatcher(0.9)), WithLogger(log.New(io.Discard)))

		if _, err := expander.Expand(ctx, "u1", testSeeds[:2]); err != nil {
			t.Fatalf("unexpected error with lowered minimum: %v", err)
		}
		if !strings.Contains(completer.User, "playlist of 5 songs") {
			t.Errorf("expected configured count in prompt, got %q", completer.User)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		completer := mtesting.NewMockCompleter(songsJSON(scenarioRecommendations), nil)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := newTestExpander(scenarioCatalog(), completer, newMemQueue()).Expand(cctx, "u1", testSeeds); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestPlaylistExpanderProgress(t *testing.T) {
	completer := mtesting.NewMockCompleter(songsJSON(scenarioRecommendations), nil)
	progress := make(chan ProgressUpdate, 32)

	_, err := newTestExpander(scenarioCatalog(), completer, newMemQueue()).ExpandWithProgress(context.Background(), "u1", testSeeds, progress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(progress)

	var updates []ProgressUpdate
	for u := range progress {
		updates = append(updates, u)
	}

	if len(updates) != 12 {
		t.Fatalf("expected 12 updates, got %d", len(updates))
	}
	if updates[0].Phase != Recommend || updates[11].Phase != Complete {
		t.Errorf("unexpected phase order: first=%s last=%s", updates[0].Phase, updates[11].Phase)
	}

	outcomes := map[Outcome]int{}
	for _, u := range updates[1:11] {
		if u.Phase != Match {
			t.Errorf("expected match phase, got %s", u.Phase)
		}
		outcomes[u.Data.(SongProgress).Outcome]++
	}
	if outcomes[OutcomeSkipped] != 3 || outcomes[OutcomeAdded] != 5 || outcomes[OutcomeNotFound] != 2 {
		t.Errorf("unexpected outcomes: %v", outcomes)
	}

	t.Run("FullChannelDoesNotBlock", func(t *testing.T) {
		full := make(chan ProgressUpdate)
		completer := mtesting.NewMockCompleter("[]", nil)
		if _, err := newTestExpander(mtesting.NewMockCatalog(), completer, newMemQueue()).ExpandWithProgress(context.Background(), "u1", testSeeds, full); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestPlaylistExpanderWithRepository(t *testing.T) {
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	user := mustCreateUser(t, db)
	queue := repositories.NewQueueRepository(db)

	if err := queue.Add(models.NewQueueEntry(user.ID, mtesting.Track("t3", "Take Five", "The Dave Brubeck Quartet"))); err != nil {
		t.Fatalf("failed to seed queue: %v", err)
	}

	completer := mtesting.NewMockCompleter(songsJSON(scenarioRecommendations), nil)
	result, err := newTestExpander(scenarioCatalog(), completer, queue).Expand(context.Background(), user.ID, testSeeds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Added) != 4 {
		t.Errorf("expected 4 added next to the existing entry, got %d", len(result.Added))
	}
	if len(result.Queue) != 5 {
		t.Fatalf("expected queue of 5, got %d", len(result.Queue))
	}
	if result.Queue[0].SpotifyTrackID != "t3" {
		t.Errorf("expected pre-existing entry first, got %s", result.Queue[0].SpotifyTrackID)
	}
}

func mustCreateUser(t *testing.T, db *sql.DB) *models.User {
	t.Helper()
	user := models.NewUser("listener", "listener@example.com", "hash")
	if err := repositories.NewUserRepository(db).Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestParseRecommendations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{"bare array", `[{"title":"A","artist":"X"},{"title":"B","artist":"Y"}]`, []string{"A", "B"}, false},
		{"code fence", "```json\n[{\"title\":\"A\",\"artist\":\"X\"}]\n```", []string{"A"}, false},
		{"prose around", "Sure! Here is your playlist:\n[{\"title\":\"A\",\"artist\":\"X\"}]\nEnjoy!", []string{"A"}, false},
		{"brackets in prose first", "Here are [10] picks: [{\"title\":\"A\",\"artist\":\"X\"}]", []string{"A"}, false},
		{"brackets in strings", `[{"title":"Song [Remastered]","artist":"X ]["}]`, []string{"Song [Remastered]"}, false},
		{"escaped quote in string", `[{"title":"Say \"Hi\" ]","artist":"X"}]`, []string{`Say "Hi" ]`}, false},
		{"trailing second array", `[{"title":"A","artist":"X"}] and [{"title":"B","artist":"Y"}]`, []string{"A"}, false},
		{"empty array", `[]`, []string{}, false},
		{"no array", "I cannot help with that.", nil, true},
		{"unbalanced", `[{"title":"A","artist":"X"}`, nil, true},
		{"array of strings", `["A by X", "B by Y"]`, nil, true},
		{"object only", `{"title":"A","artist":"X"}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			songs, err := ParseRecommendations(tt.content)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrUpstreamFormat) {
					t.Fatalf("expected ErrUpstreamFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(songs) != len(tt.want) {
				t.Fatalf("expected %d songs, got %d", len(tt.want), len(songs))
			}
			for i, title := range tt.want {
				if songs[i].Title != title {
					t.Errorf("song %d: expected %q, got %q", i, title, songs[i].Title)
				}
			}
		})
	}
}
