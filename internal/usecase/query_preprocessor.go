package usecase

import (
	"fmt"
	"strings"

	"github.com/dailybelle/sizeadvisor/internal/domain"
)

// Keyword match modes against the account username
const (
	MatchContains = "contains"
	MatchPrefix   = "prefix"
)

// PoseShapeTag is appended to the display tags to mark where the shape was computed
const PoseShapeTag = "(I-Pose Shape)"

// shapeTags are body-shape labels the provider mixes into the tag list
var shapeTags = map[string]bool{
	"Rectangle":         true,
	"Inverted Triangle": true,
	"Triangle":          true,
	"Hourglass":         true,
	"Top Hourglass":     true,
	"Oval":              true,
}

// QueryPreprocessor prepares the search keyword and the record tags
type QueryPreprocessor struct {
	mode string
}

// NewQueryPreprocessor creates a preprocessor for a username match mode
func NewQueryPreprocessor(mode string) (*QueryPreprocessor, error) {
	switch mode {
	case "":
		mode = MatchContains
	case MatchContains, MatchPrefix:
	default:
		return nil, fmt.Errorf("%w: unknown match mode %q", domain.ErrInvalidRequest, mode)
	}
	return &QueryPreprocessor{mode: mode}, nil
}

// Mode returns the active match mode
func (p *QueryPreprocessor) Mode() string {
	return p.mode
}

// MatchUsername reports whether username satisfies keyword. Comparison is
// case-sensitive on the raw strings; an empty username never matches.
func (p *QueryPreprocessor) MatchUsername(username, keyword string) bool {
	if username == "" {
		return false
	}
	if p.mode == MatchPrefix {
		return strings.HasPrefix(username, keyword)
	}
	return strings.Contains(username, keyword)
}

// SplitTags separates the body-shape label from the remaining tags. The first shape
// tag wins; display tags keep their order and end with the pose marker.
func SplitTags(tags []string) (bodyShape string, display []string) {
	display = make([]string, 0, len(tags)+1)
	for _, tag := range tags {
		if shapeTags[tag] {
			if bodyShape == "" {
				bodyShape = tag
			}
			continue
		}
		display = append(display, tag)
	}
	return bodyShape, append(display, PoseShapeTag)
}
