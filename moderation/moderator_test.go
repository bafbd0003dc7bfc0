package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sirco-web/ttls/errors"
)

const replacement = '*'

// The dictionary uses specific words to avoid partial collisions
// (e.g. "he" inside "The").
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator([]string{"badger", "snake", "mushroom"}, replacement)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
		},
		{
			name:     "case insensitive",
			input:    "SNAKE alert",
			expected: "***** alert",
		},
		{
			name:     "leet substitutions fold back",
			input:    "watch the b4dger",
			expected: "watch the ******",
		},
		{
			name:     "no match leaves text untouched",
			input:    "nothing to see",
			expected: "nothing to see",
		},
		{
			name:     "multiple matches",
			input:    "snake meets badger",
			expected: "***** meets ******",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, mod.Censor(tc.input))
		})
	}
}

func TestModerator_EmptyWordList(t *testing.T) {
	req := require.New(t)

	_, err := NewModerator(nil, replacement)

	req.ErrorIs(err, errors.ErrEmptyWordList)
}
