package usecase

import (
	"fmt"
	"strings"

	"github.com/dailybelle/sizeadvisor/internal/domain"
)

// Classifier modes
const (
	ClassifierKeyword = "keyword"
	ClassifierExact   = "exact"
)

// DefaultAttributeKeywords are mined from free-text tags by substring
var DefaultAttributeKeywords = []string{"下垂", "外擴", "副乳", "扁平", "雞胸"}

// DefaultAttributeNames are the provider's pre-classified shape attributes
var DefaultAttributeNames = []string{"秀氣勻稱型", "自然美感型", "成熟承托型", "氣質柔順型", "渾圓美胸型", "柔潤水滴型"}

// AttributeClassifier picks a shape attribute from a record's tags
type AttributeClassifier interface {
	Classify(tags []string) string
}

// KeywordClassifier returns the first vocabulary keyword contained in a tag, scanning
// tags in order and keywords in vocabulary order within each tag.
type KeywordClassifier struct {
	keywords []string
}

// NewKeywordClassifier creates a substring classifier; an empty vocabulary uses the defaults.
func NewKeywordClassifier(keywords []string) *KeywordClassifier {
	if len(keywords) == 0 {
		keywords = DefaultAttributeKeywords
	}
	return &KeywordClassifier{keywords: keywords}
}

func (k *KeywordClassifier) Classify(tags []string) string {
	for _, tag := range tags {
		for _, kw := range k.keywords {
			if kw != "" && strings.Contains(tag, kw) {
				return kw
			}
		}
	}
	return domain.AttributeUndetermined
}

// ExactClassifier returns the first tag equal to a known attribute name
type ExactClassifier struct {
	names map[string]bool
}

// NewExactClassifier creates an equality classifier; an empty vocabulary uses the defaults.
func NewExactClassifier(names []string) *ExactClassifier {
	if len(names) == 0 {
		names = DefaultAttributeNames
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return &ExactClassifier{names: set}
}

func (e *ExactClassifier) Classify(tags []string) string {
	for _, tag := range tags {
		if e.names[tag] {
			return tag
		}
	}
	return domain.AttributeUndetermined
}

// NewClassifier selects a classifier by mode
func NewClassifier(mode string, vocabulary []string) (AttributeClassifier, error) {
	switch mode {
	case ClassifierKeyword, "":
		return NewKeywordClassifier(vocabulary), nil
	case ClassifierExact:
		return NewExactClassifier(vocabulary), nil
	default:
		return nil, fmt.Errorf("%w: unknown classifier %q", domain.ErrInvalidRequest, mode)
	}
}
