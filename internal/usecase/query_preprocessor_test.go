package usecase

import (
	"testing"

	"github.com/dailybelle/sizeadvisor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueryPreprocessor(t *testing.T) {
	t.Run("defaults to contains", func(t *testing.T) {
		p, err := NewQueryPreprocessor("")
		require.NoError(t, err)
		assert.Equal(t, MatchContains, p.Mode())
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		_, err := NewQueryPreprocessor("regex")
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})
}

func TestMatchUsername(t *testing.T) {
	testCases := []struct {
		name     string
		mode     string
		username string
		keyword  string
		want     bool
	}{
		{"contains in middle", MatchContains, "tw26020865x", "26020865", true},
		{"contains exact", MatchContains, "26020865", "26020865", true},
		{"contains is case sensitive", MatchContains, "AmyLin", "amy", false},
		{"prefix match", MatchPrefix, "26020865x", "26020865", true},
		{"prefix rejects middle", MatchPrefix, "tw26020865", "26020865", false},
		{"empty username never matches", MatchContains, "", "", false},
		{"keyword is not trimmed", MatchContains, "26020865", " 26020865", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewQueryPreprocessor(tc.mode)
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.MatchUsername(tc.username, tc.keyword))
		})
	}
}

func TestSplitTags(t *testing.T) {
	shape, display := SplitTags([]string{"下垂", "Hourglass", "副乳", "Oval"})

	assert.Equal(t, "Hourglass", shape)
	assert.Equal(t, []string{"下垂", "副乳", PoseShapeTag}, display)

	shape, display = SplitTags(nil)
	assert.Empty(t, shape)
	assert.Equal(t, []string{PoseShapeTag}, display)
}
