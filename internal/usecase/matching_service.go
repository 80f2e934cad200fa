package usecase

import (
	"sync/atomic"

	"github.com/dailybelle/sizeadvisor/internal/domain"
	"go.uber.org/zap"
)

// Adjustment defaults for the supported-fit attribute
const (
	DefaultAdjustAttribute = "成熟承托型"
	DefaultAdjustOffset    = 3.0
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	AdjustAttribute string  // attribute that enables the upper-bust offset
	AdjustOffset    float64 // added to the upper bust before matching
}

// MatchingService joins measurements against the size table and expands the matched
// groups into product codes
type MatchingService struct {
	catalog         atomic.Pointer[domain.Catalog]
	adjustAttribute string
	adjustOffset    float64
	logger          *zap.Logger
}

// NewMatchingService creates a matcher over a read-only catalog
func NewMatchingService(catalog *domain.Catalog, config MatchConfig, logger *zap.Logger) *MatchingService {
	if catalog == nil {
		catalog = &domain.Catalog{}
	}
	attr := config.AdjustAttribute
	if attr == "" {
		attr = DefaultAdjustAttribute
	}
	offset := config.AdjustOffset
	if offset == 0 {
		offset = DefaultAdjustOffset
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &MatchingService{
		adjustAttribute: attr,
		adjustOffset:    offset,
		logger:          logger.Named("matcher"),
	}
	s.catalog.Store(catalog)
	return s
}

// SetCatalog swaps the reference data. Matches already running keep the old catalog.
func (s *MatchingService) SetCatalog(catalog *domain.Catalog) {
	if catalog == nil {
		catalog = &domain.Catalog{}
	}
	s.catalog.Store(catalog)
}

// Catalog returns the reference data currently matched against
func (s *MatchingService) Catalog() *domain.Catalog {
	return s.catalog.Load()
}

// Match returns every size row containing the (possibly adjusted) readings in table
// order. A row whose products are all filtered out stays in the result with no codes.
func (s *MatchingService) Match(req domain.MatchRequest) *domain.RecommendationSet {
	catalog := s.catalog.Load()
	attr := req.Attribute
	if attr == "" {
		attr = domain.AttributeUndetermined
	}

	set := &domain.RecommendationSet{
		CalcUpper:       req.Upper,
		Lower:           req.Lower,
		Attribute:       attr,
		Recommendations: []domain.Recommendation{},
	}
	if req.SpecialAdjust && attr == s.adjustAttribute {
		set.CalcUpper += s.adjustOffset
		set.Adjusted = true
	}

	var allowed map[string]bool
	if attr != domain.AttributeUndetermined {
		allowed = attributeProducts(catalog, attr)
	}

	anyProduct := false
	for _, row := range catalog.Sizes {
		if !row.Contains(set.CalcUpper, set.Lower) {
			continue
		}

		codes := groupProducts(catalog, row.GroupID)
		if allowed != nil {
			codes = intersect(codes, allowed)
		}

		rec := domain.Recommendation{
			SizeLabel:    row.SizeLabel,
			GroupID:      row.GroupID,
			ProductCodes: codes,
		}
		for _, code := range codes {
			if link, ok := catalog.ProductURLs[code]; ok {
				if rec.ProductURLs == nil {
					rec.ProductURLs = make(map[string]string)
				}
				rec.ProductURLs[code] = link
			}
		}
		if len(codes) > 0 {
			anyProduct = true
		}
		set.Recommendations = append(set.Recommendations, rec)
	}

	switch {
	case len(set.Recommendations) == 0:
		set.Outcome = domain.OutcomeNoSizeMatch
	case anyProduct:
		set.Outcome = domain.OutcomeMatched
	default:
		set.Outcome = domain.OutcomeMatchedNoProduct
	}

	s.logger.Debug("match",
		zap.Float64("calc_upper", set.CalcUpper),
		zap.Float64("lower", set.Lower),
		zap.String("attribute", attr),
		zap.Bool("adjusted", set.Adjusted),
		zap.Int("rows", len(set.Recommendations)),
		zap.String("outcome", string(set.Outcome)))

	return set
}

// groupProducts returns the distinct codes mapped to group in first-seen order
func groupProducts(catalog *domain.Catalog, group string) []string {
	codes := []string{}
	seen := make(map[string]bool)
	for _, p := range catalog.Products {
		if p.GroupID != group || seen[p.ProductCode] {
			continue
		}
		seen[p.ProductCode] = true
		codes = append(codes, p.ProductCode)
	}
	return codes
}

// attributeProducts returns the set of codes suited to attr, or nil when the
// attribute table has no rows for it and the group is left unfiltered
func attributeProducts(catalog *domain.Catalog, attr string) map[string]bool {
	var allowed map[string]bool
	for _, a := range catalog.Attributes {
		if a.Attribute != attr {
			continue
		}
		if allowed == nil {
			allowed = make(map[string]bool)
		}
		allowed[a.ProductCode] = true
	}
	return allowed
}

func intersect(codes []string, allowed map[string]bool) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if allowed[code] {
			out = append(out, code)
		}
	}
	return out
}
