package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/ui"
	"github.com/urfave/cli/v3"
)

// UserCreate creates an account with a bcrypt-hashed password.
func (r *Runner) UserCreate(ctx context.Context, cmd *cli.Command) error {
	r.configure(cmd)
	db, err := r.database()
	if err != nil {
		return err
	}

	hash, err := server.HashPassword(cmd.String("password"))
	if err != nil {
		return err
	}

	user := models.NewUser(cmd.String("username"), cmd.String("email"), hash)
	if err := repositories.NewUserRepository(db).Create(user); err != nil {
		return err
	}

	return r.writeLine(ui.OK(fmt.Sprintf("✓ Created user %s (%s)", user.Username, user.ID)))
}

// QueueList prints the user's queue in insertion order.
func (r *Runner) QueueList(ctx context.Context, cmd *cli.Command) error {
	r.configure(cmd)
	db, err := r.database()
	if err != nil {
		return err
	}

	user, err := r.lookupUser(db, cmd.String("user"))
	if err != nil {
		return err
	}

	entries, err := repositories.NewQueueRepository(db).List(user.ID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string][]models.QueueEntry{"queue": entries}, true)
	}
	return r.writeLine(ui.Queue(user.Username, entries))
}

// QueueAdd searches the catalog with the command's arguments and adds the result chosen by --pick.
func (r *Runner) QueueAdd(ctx context.Context, cmd *cli.Command) error {
	keywords := cmd.Args().Slice()
	if len(keywords) == 0 {
		return fmt.Errorf("%w: at least one keyword", shared.ErrMissingArgument)
	}

	r.configure(cmd)
	db, err := r.database()
	if err != nil {
		return err
	}

	user, err := r.lookupUser(db, cmd.String("user"))
	if err != nil {
		return err
	}

	catalog, err := r.catalogClient()
	if err != nil {
		return err
	}

	tracks := catalog.Search(ctx, keywords)
	pick := int(cmd.Int("pick"))
	if pick < 1 || pick > len(tracks) {
		return fmt.Errorf("%w: %d results for %q, cannot pick %d", shared.ErrNotFound, len(tracks), strings.Join(keywords, " "), pick)
	}

	track := tracks[pick-1]
	if err := repositories.NewQueueRepository(db).Add(models.NewQueueEntry(user.ID, track)); err != nil {
		return err
	}

	return r.writeLine(ui.OK(fmt.Sprintf("✓ Added %s - %s", track.Artist, track.Title)))
}

// QueueRemove deletes one track from the user's queue.
func (r *Runner) QueueRemove(ctx context.Context, cmd *cli.Command) error {
	r.configure(cmd)
	db, err := r.database()
	if err != nil {
		return err
	}

	user, err := r.lookupUser(db, cmd.String("user"))
	if err != nil {
		return err
	}

	trackID := cmd.String("track-id")
	if err := repositories.NewQueueRepository(db).Remove(user.ID, trackID); err != nil {
		return err
	}

	return r.writeLine(ui.OK("✓ Removed " + trackID))
}

// QueueExport writes the user's queue as CSV, Markdown, text or JSON.
//
// Markdown exports are a directory holding README.md and the first album cover.
func (r *Runner) QueueExport(ctx context.Context, cmd *cli.Command) error {
	r.configure(cmd)
	db, err := r.database()
	if err != nil {
		return err
	}

	user, err := r.lookupUser(db, cmd.String("user"))
	if err != nil {
		return err
	}

	entries, err := repositories.NewQueueRepository(db).List(user.ID)
	if err != nil {
		return err
	}

	export := &models.QueueExport{Owner: user.Username, ExportedAt: time.Now().UTC(), Entries: entries}
	format := strings.ToLower(cmd.String("format"))
	output := cmd.String("output")

	if format == formatter.FormatMarkdown {
		if output == "" {
			output = user.Username
		}
		result, err := formatter.WriteMarkdownExport(ctx, r.httpClient, export, output, func(err error) {
			r.logger.Warn("failed to save cover image", "error", err)
		})
		if err != nil {
			return err
		}
		return r.writeLine(ui.OK(fmt.Sprintf("✓ Exported %d tracks to %s", len(entries), strings.Join(result.Files, ", "))))
	}

	if output == "" {
		output = fmt.Sprintf("%s_mixtape.%s", user.Username, extension(format))
	}
	if err := formatter.WriteFile(export, format, output); err != nil {
		return err
	}
	return r.writeLine(ui.OK(fmt.Sprintf("✓ Exported %d tracks to %s", len(entries), filepath.Clean(output))))
}

func extension(format string) string {
	switch format {
	case formatter.FormatText:
		return "txt"
	default:
		return format
	}
}
