package services

import (
	"context"

	"github.com/desertthunder/mixtape/internal/models"
)

// Catalog searches a music catalog for tracks.
type Catalog interface {
	// Search runs one free-text query built from keywords. Failures yield an empty slice.
	Search(ctx context.Context, keywords []string) []models.Track
}

// Completer sends one system instruction and one user message to a language model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, system, user string, temperature float32) (string, error)
}

// Analyzer extracts musical attributes from a free-text prompt.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) models.Analysis
}

var (
	_ Catalog   = (*CatalogClient)(nil)
	_ Completer = (*OpenAICompleter)(nil)
	_ Analyzer  = (*PromptAnalyzer)(nil)
)
