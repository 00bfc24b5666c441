package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestModerator(t *testing.T) *Moderator {
	t.Helper()
	moderator, err := NewModerator([]string{"idiot", "moron"}, '*')
	require.NoError(t, err)
	return moderator
}

func TestModerator_CleanTextUntouched(t *testing.T) {
	req := require.New(t)
	moderator := newTestModerator(t)

	input := "what a wonderful day"
	req.Equal(input, moderator.Censor(input))
}

func TestModerator_CensorsBlacklistedWord(t *testing.T) {
	req := require.New(t)
	moderator := newTestModerator(t)

	out := moderator.Censor("you are an idiot, really")
	req.Equal("you are an *****, really", out)
}

func TestModerator_LeetSpeak(t *testing.T) {
	req := require.New(t)
	moderator := newTestModerator(t)

	// Digits substitute for letters; the original spelling is censored
	out := moderator.Censor("such an 1d10t")
	req.Equal("such an *****", out)
}

func TestModerator_PunctuationPadding(t *testing.T) {
	req := require.New(t)
	moderator := newTestModerator(t)

	out := moderator.Censor("m.o.r.o.n")
	req.False(strings.Contains(out, "m"))
	req.Contains(out, "*")
}

func TestModerator_PreservesLength(t *testing.T) {
	req := require.New(t)
	moderator := newTestModerator(t)

	input := "idiot and moron"
	out := moderator.Censor(input)
	req.Len([]rune(out), len([]rune(input)))
}

func TestLoadWordlists(t *testing.T) {
	req := require.New(t)

	lists, err := LoadWordlists()
	req.NoError(err)
	req.NotEmpty(lists.Words)
	req.Contains(lists.Languages, "en")
	req.Contains(lists.Languages, "fr")

	// Comment lines never end up in the blacklist
	for _, word := range lists.Words {
		req.False(strings.HasPrefix(word, "#"))
	}
}

func TestDetectLanguage(t *testing.T) {
	req := require.New(t)

	code := DetectLanguage("This is a perfectly normal English sentence about the weather today.")
	req.Equal("en", code)
}
