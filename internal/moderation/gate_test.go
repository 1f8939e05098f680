package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubScorer struct {
	scores Scores
	err    error
}

func (s stubScorer) Score(context.Context, string) (Scores, error) {
	return s.scores, s.err
}

func TestModerateCleanText(t *testing.T) {
	gate := NewGate(stubScorer{}, 0.7, false, nil)
	res := gate.ModerateDefault(context.Background(), "looking forward to the meetup next week")
	require.True(t, res.Approved)
	require.Equal(t, "looking forward to the meetup next week", res.ModeratedText)
	require.Empty(t, res.Reason)
}

func TestModerateEmptyText(t *testing.T) {
	gate := NewGate(stubScorer{scores: Scores{Toxicity: 0.99}}, 0.7, false, nil)
	for _, text := range []string{"", "   ", "\n\t"} {
		res := gate.ModerateDefault(context.Background(), text)
		require.True(t, res.Approved)
		require.Equal(t, text, res.ModeratedText)
	}
}

func TestModerateProfanityAutoCensor(t *testing.T) {
	gate := NewGate(stubScorer{}, 0.7, true, nil)
	res := gate.ModerateDefault(context.Background(), "this event is shit")
	require.True(t, res.Approved)
	require.NotEqual(t, "this event is shit", res.ModeratedText)
	require.NotContains(t, res.ModeratedText, "shit")
	require.Contains(t, res.Reason, "profanity")
}

func TestModerateProfanityRejected(t *testing.T) {
	gate := NewGate(stubScorer{}, 0.7, false, nil)
	res := gate.ModerateDefault(context.Background(), "this event is shit")
	require.False(t, res.Approved)
	require.Equal(t, "this event is shit", res.ModeratedText, "rejected text is returned unmodified")
	require.Contains(t, res.Reason, "inappropriate language")
}

func TestModerateToxicityRejectedWithScores(t *testing.T) {
	gate := NewGate(stubScorer{scores: Scores{Threat: 0.92, Insult: 0.88}}, 0.7, false, nil)
	res := gate.ModerateDefault(context.Background(), "a perfectly spelled sentence")
	require.False(t, res.Approved)
	require.Contains(t, res.Reason, "threats (0.92)")
	require.Contains(t, res.Reason, "insults (0.88)")
}

func TestModerateBelowThresholdApproved(t *testing.T) {
	gate := NewGate(stubScorer{scores: Scores{Toxicity: 0.69}}, 0.7, false, nil)
	res := gate.ModerateDefault(context.Background(), "borderline but fine")
	require.True(t, res.Approved)
}

func TestModerateCensoredTextIsIdempotent(t *testing.T) {
	gate := NewGate(stubScorer{}, 0.7, true, nil)
	first := gate.ModerateDefault(context.Background(), "this event is shit")
	require.True(t, first.Approved)

	second := gate.ModerateDefault(context.Background(), first.ModeratedText)
	require.True(t, second.Approved)
	require.Equal(t, first.ModeratedText, second.ModeratedText)
	require.Empty(t, second.Reason)
}

func TestModerateScorerFailureFailsOpen(t *testing.T) {
	gate := NewGate(stubScorer{err: errors.New("classifier down")}, 0.7, false, nil)

	res := gate.ModerateDefault(context.Background(), "a perfectly normal sentence")
	require.True(t, res.Approved, "classifier outage must not block clean writes")

	res = gate.ModerateDefault(context.Background(), "this event is shit")
	require.False(t, res.Approved, "the censor pass still runs when the scorer is down")
}

func TestLexiconScorer(t *testing.T) {
	scorer := NewLexiconScorer()

	scores, err := scorer.Score(context.Background(), "I will kill you, you worthless idiot")
	require.NoError(t, err)
	require.Greater(t, scores.Threat, 0.7)
	require.Greater(t, scores.Insult, 0.7)
	require.Greater(t, scores.Toxicity, 0.7)
	require.Greater(t, scores.SevereToxicity, 0.7, "two triggered categories mark severe toxicity")

	scores, err = scorer.Score(context.Background(), "see you at the venue")
	require.NoError(t, err)
	require.Zero(t, scores.Toxicity)
}
