package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
)

// AnalysisTemperature is the sampling temperature for prompt analysis.
const AnalysisTemperature float32 = 0.6

const analysisInstruction = `You are a music assistant. Return JSON with mood, language, genre, keywords from a mixtape prompt. Be precise and avoid assumptions. Format:
{
  "mood": "",
  "language": "",
  "genre": "",
  "keywords": ["", ""]
}`

// PromptAnalyzer distills a mixtape prompt into a [models.Analysis] with one completion call.
type PromptAnalyzer struct {
	completer Completer
	logger    *log.Logger
}

// NewPromptAnalyzer creates a [PromptAnalyzer] backed by completer.
func NewPromptAnalyzer(completer Completer, logger *log.Logger) *PromptAnalyzer {
	if logger == nil {
		logger = log.Default()
	}
	return &PromptAnalyzer{completer: completer, logger: logger.WithPrefix("analyzer")}
}

// Analyze never returns an error. Failures are reported through [models.Analysis.Error].
func (a *PromptAnalyzer) Analyze(ctx context.Context, prompt string) models.Analysis {
	content, err := a.completer.Complete(ctx, analysisInstruction, fmt.Sprintf("I want a mixtape for this: '%s'", prompt), AnalysisTemperature)
	if err != nil {
		a.logger.Error("analysis failed", "error", err)
		return models.Analysis{Error: err.Error()}
	}

	var analysis models.Analysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		a.logger.Error("analysis is not valid JSON", "error", err)
		return models.Analysis{Error: fmt.Sprintf("could not parse analysis: %v", err)}
	}

	analysis.Error = ""
	if analysis.Keywords == nil {
		analysis.Keywords = []string{}
	}

	a.logger.Debug("analysis", "mood", analysis.Mood, "genre", analysis.Genre, "keywords", analysis.Keywords)
	return analysis
}
