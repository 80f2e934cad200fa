package usecase

import (
	"testing"

	"github.com/dailybelle/sizeadvisor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier(nil)

	tests := []struct {
		name string
		tags []string
		want string
	}{
		{"no tags", nil, domain.AttributeUndetermined},
		{"no keyword", []string{"Oval", "Hourglass"}, domain.AttributeUndetermined},
		{"exact keyword", []string{"下垂"}, "下垂"},
		{"keyword inside longer tag", []string{"輕微外擴型"}, "外擴"},
		{"first tag wins", []string{"雞胸", "下垂"}, "雞胸"},
		{"vocabulary order within a tag", []string{"外擴下垂"}, "下垂"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.tags))
		})
	}
}

func TestExactClassifier(t *testing.T) {
	c := NewExactClassifier(nil)

	assert.Equal(t, "成熟承托型", c.Classify([]string{"Oval", "成熟承托型", "柔潤水滴型"}))
	assert.Equal(t, domain.AttributeUndetermined, c.Classify([]string{"成熟承托"}))
	assert.Equal(t, domain.AttributeUndetermined, c.Classify(nil))
}

func TestNewClassifier(t *testing.T) {
	c, err := NewClassifier("", nil)
	require.NoError(t, err)
	assert.IsType(t, &KeywordClassifier{}, c)

	c, err = NewClassifier(ClassifierExact, []string{"A型"})
	require.NoError(t, err)
	assert.Equal(t, "A型", c.Classify([]string{"A型"}))

	_, err = NewClassifier("fuzzy", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
