// Package moderation screens user-generated text before persistence: a
// profanity-censoring pass and an independent toxicity-scoring pass. Callers
// must abort the write entirely when the gate rejects.
package moderation

import (
	"context"
	"fmt"
	"strings"

	goaway "github.com/TwiN/go-away"
	"go.uber.org/zap"
)

// Result is the outcome of moderating one piece of text.
type Result struct {
	Approved      bool   `json:"approved"`
	ModeratedText string `json:"moderated_text"`
	Reason        string `json:"reason,omitempty"`
}

// Gate combines the censor pass with a toxicity scorer.
type Gate struct {
	scorer Scorer
	logger *zap.Logger

	// Defaults applied by ModerateDefault.
	Threshold  float64
	AutoCensor bool
}

// NewGate creates a moderation gate.
func NewGate(scorer Scorer, threshold float64, autoCensor bool, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if threshold <= 0 || threshold > 1 {
		threshold = 0.7
	}
	return &Gate{scorer: scorer, logger: logger, Threshold: threshold, AutoCensor: autoCensor}
}

// ModerateDefault runs Moderate with the configured threshold and censor mode.
func (g *Gate) ModerateDefault(ctx context.Context, text string) Result {
	return g.Moderate(ctx, text, g.Threshold, g.AutoCensor)
}

// Moderate screens text. Empty or whitespace-only input is approved
// unchanged. The censor pass and the toxicity pass are independent: either
// alone can trigger. With autoCensor the censored text is approved with a
// reason naming the trigger; without it the original text is returned
// rejected with every triggered category and its score.
func (g *Gate) Moderate(ctx context.Context, text string, threshold float64, autoCensor bool) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Approved: true, ModeratedText: text}
	}

	censored := goaway.Censor(text)
	profane := censored != text

	scores, err := g.scorer.Score(ctx, text)
	if err != nil {
		// Classifier outage must not block writes; the censor pass still ran.
		g.logger.Warn("toxicity scorer failed", zap.Error(err))
		scores = Scores{}
	}
	var triggered []Category
	for _, c := range scores.Categories() {
		if c.Score > threshold {
			triggered = append(triggered, c)
		}
	}

	if !profane && len(triggered) == 0 {
		return Result{Approved: true, ModeratedText: text}
	}

	if autoCensor {
		return Result{
			Approved:      true,
			ModeratedText: censored,
			Reason:        censorReason(profane, triggered),
		}
	}
	return Result{
		Approved:      false,
		ModeratedText: text,
		Reason:        rejectReason(profane, triggered),
	}
}

func censorReason(profane bool, triggered []Category) string {
	var parts []string
	if profane {
		parts = append(parts, "profanity")
	}
	for _, c := range triggered {
		parts = append(parts, c.Label)
	}
	return "content was automatically censored due to " + strings.Join(parts, ", ")
}

func rejectReason(profane bool, triggered []Category) string {
	var parts []string
	for _, c := range triggered {
		parts = append(parts, fmt.Sprintf("%s (%.2f)", c.Label, c.Score))
	}
	if profane && len(parts) == 0 {
		parts = append(parts, "profanity")
	}
	return "content contains inappropriate language: " + strings.Join(parts, ", ")
}
