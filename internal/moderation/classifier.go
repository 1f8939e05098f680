package moderation

import (
	"context"
	"fmt"
	"strings"

	goaway "github.com/TwiN/go-away"
	"github.com/go-resty/resty/v2"
)

// Scores holds per-category toxicity scores in [0,1], mirroring the
// Detoxify category set.
type Scores struct {
	Toxicity       float64 `json:"toxicity"`
	SevereToxicity float64 `json:"severe_toxicity"`
	Obscene        float64 `json:"obscene"`
	Threat         float64 `json:"threat"`
	Insult         float64 `json:"insult"`
	IdentityAttack float64 `json:"identity_attack"`
}

// Category pairs a human-readable label with its score.
type Category struct {
	Label string
	Score float64
}

// Categories returns all categories in a stable order, labeled the way
// rejection reasons phrase them.
func (s Scores) Categories() []Category {
	return []Category{
		{"toxicity", s.Toxicity},
		{"severe toxicity", s.SevereToxicity},
		{"obscene language", s.Obscene},
		{"threats", s.Threat},
		{"insults", s.Insult},
		{"identity attacks", s.IdentityAttack},
	}
}

// Scorer produces toxicity scores for a piece of text. Implementations are
// treated as opaque classifiers.
type Scorer interface {
	Score(ctx context.Context, text string) (Scores, error)
}

// LexiconScorer is a self-contained scorer driven by small per-category word
// lists plus the profanity dictionary. It is the default when no remote
// classifier is configured.
type LexiconScorer struct{}

// NewLexiconScorer creates the default in-process scorer.
func NewLexiconScorer() *LexiconScorer { return &LexiconScorer{} }

var (
	threatWords = []string{
		"kill", "murder", "shoot", "stab", "strangle", "hunt you down",
		"beat you", "hurt you", "make you pay", "end you",
	}
	insultWords = []string{
		"idiot", "stupid", "moron", "dumb", "loser", "pathetic", "worthless",
		"ugly", "disgusting",
	}
	identityWords = []string{
		"go back to your country", "your kind", "subhuman", "vermin",
	}
)

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Score assigns fixed per-category scores based on vocabulary presence.
func (s *LexiconScorer) Score(_ context.Context, text string) (Scores, error) {
	lowered := strings.ToLower(text)
	var sc Scores
	if goaway.IsProfane(text) {
		sc.Obscene = 0.84
	}
	if containsAny(lowered, threatWords) {
		sc.Threat = 0.92
	}
	if containsAny(lowered, insultWords) {
		sc.Insult = 0.88
	}
	if containsAny(lowered, identityWords) {
		sc.IdentityAttack = 0.9
	}
	max := 0.0
	hits := 0
	for _, c := range []float64{sc.Obscene, sc.Threat, sc.Insult, sc.IdentityAttack} {
		if c > 0 {
			hits++
		}
		if c > max {
			max = c
		}
	}
	if max > 0 {
		sc.Toxicity = max * 0.95
	}
	if hits >= 2 {
		sc.SevereToxicity = 0.75
	}
	return sc, nil
}

// RemoteScorer calls a Detoxify-compatible HTTP scoring service.
type RemoteScorer struct {
	client *resty.Client
	url    string
}

// NewRemoteScorer creates a scorer backed by the classifier at url.
func NewRemoteScorer(url string) *RemoteScorer {
	return &RemoteScorer{client: resty.New(), url: url}
}

// Score posts the text and decodes the per-category scores.
func (s *RemoteScorer) Score(ctx context.Context, text string) (Scores, error) {
	var out Scores
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"text": text}).
		SetResult(&out).
		Post(s.url)
	if err != nil {
		return Scores{}, fmt.Errorf("classifier request: %w", err)
	}
	if resp.IsError() {
		return Scores{}, fmt.Errorf("classifier status %d", resp.StatusCode())
	}
	return out, nil
}
