package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/desertthunder/mixtape/internal/ui"
	"github.com/urfave/cli/v3"
)

type analyzeOutput struct {
	Analysis       models.Analysis `json:"analysis"`
	SpotifyResults []models.Track  `json:"spotify_results"`
	Prompt         string          `json:"prompt"`
}

// Analyze runs the prompt through the model and searches the catalog with the extracted keywords.
func (r *Runner) Analyze(ctx context.Context, cmd *cli.Command) error {
	prompt := strings.TrimSpace(cmd.StringArg("prompt"))
	if prompt == "" {
		return fmt.Errorf("%w: prompt", shared.ErrMissingArgument)
	}
	r.configure(cmd)

	completer, err := r.completerClient()
	if err != nil {
		return err
	}

	analysis := services.NewPromptAnalyzer(completer, r.logger).Analyze(ctx, prompt)
	if analysis.Failed() {
		if cmd.Bool("json") {
			r.writeJSON(analysis, cmd.Bool("pretty"))
		} else {
			r.writeLine(ui.Analysis(prompt, analysis))
		}
		return fmt.Errorf("%w: %s", shared.ErrUpstreamUnavailable, analysis.Error)
	}

	results := []models.Track{}
	if !cmd.Bool("no-search") {
		catalog, err := r.catalogClient()
		if err != nil {
			return err
		}
		results = catalog.Search(ctx, analysis.Keywords)
	}

	if cmd.Bool("json") {
		return r.writeJSON(analyzeOutput{Analysis: analysis, SpotifyResults: results, Prompt: prompt}, cmd.Bool("pretty"))
	}

	r.writeLine(ui.Analysis(prompt, analysis))
	if !cmd.Bool("no-search") {
		r.writeLine("")
		r.writeLine(ui.Tracks(results))
	}
	return nil
}

// Search queries the catalog with the command's arguments as keywords.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	keywords := cmd.Args().Slice()
	if len(keywords) == 0 {
		return fmt.Errorf("%w: at least one keyword", shared.ErrMissingArgument)
	}
	r.configure(cmd)

	catalog, err := r.catalogClient()
	if err != nil {
		return err
	}

	tracks := catalog.Search(ctx, keywords)
	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}
	return r.writeLine(ui.Tracks(tracks))
}

// parseSong reads a seed written as "Title - Artist". The last " - " separates the two.
func parseSong(s string) (models.Song, error) {
	i := strings.LastIndex(s, " - ")
	if i < 0 {
		return models.Song{}, fmt.Errorf("%w: song %q must look like \"Title - Artist\"", shared.ErrInvalidArgument, s)
	}

	song := models.Song{Title: strings.TrimSpace(s[:i]), Artist: strings.TrimSpace(s[i+3:])}
	if song.Title == "" || song.Artist == "" {
		return models.Song{}, fmt.Errorf("%w: song %q needs both a title and an artist", shared.ErrInvalidArgument, s)
	}
	return song, nil
}

// Expand recommends songs similar to the --song seeds and adds the matches to the user's queue, printing progress as it goes.
func (r *Runner) Expand(ctx context.Context, cmd *cli.Command) error {
	seeds := []models.Song{}
	for _, raw := range cmd.StringSlice("song") {
		song, err := parseSong(raw)
		if err != nil {
			return err
		}
		seeds = append(seeds, song)
	}

	config := r.configure(cmd)
	db, err := r.database()
	if err != nil {
		return err
	}

	user, err := r.lookupUser(db, cmd.String("user"))
	if err != nil {
		return err
	}

	expander, err := r.expander(repositories.NewQueueRepository(db))
	if err != nil {
		return err
	}

	useJSON := cmd.Bool("json")
	progress := make(chan tasks.ProgressUpdate, config.Matching.RecommendationCount+2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if !useJSON {
				r.writeLine(ui.Progress(update))
			}
		}
	}()

	result, err := expander.ExpandWithProgress(ctx, user.ID, seeds, progress)
	close(progress)
	wg.Wait()

	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(result, true)
	}
	r.writeLine("")
	return r.writeLine(ui.ExpandSummary(result))
}
