package domain

import "time"

// SizeIntervalRow binds an inclusive upper/lower bust interval to a size group
type SizeIntervalRow struct {
	UpperMin  float64 `json:"upperMin"`
	UpperMax  float64 `json:"upperMax"`
	LowerMin  float64 `json:"lowerMin"`
	LowerMax  float64 `json:"lowerMax"`
	GroupID   string  `json:"groupId"`
	SizeLabel string  `json:"sizeLabel"`
}

// Contains reports whether both readings fall inside the row's bounds (inclusive).
func (r SizeIntervalRow) Contains(upper, lower float64) bool {
	return r.UpperMin <= upper && upper <= r.UpperMax &&
		r.LowerMin <= lower && lower <= r.LowerMax
}

// ProductMappingRow lists one product code eligible for a size group
type ProductMappingRow struct {
	GroupID     string `json:"groupId"`
	ProductCode string `json:"productCode"`
}

// AttributeProductRow lists one product code suited to a shape attribute
type AttributeProductRow struct {
	Attribute   string `json:"attribute"`
	ProductCode string `json:"productCode"`
}

// Catalog is the read-only reference data loaded once at startup
type Catalog struct {
	Sizes       []SizeIntervalRow
	Products    []ProductMappingRow
	Attributes  []AttributeProductRow
	ProductURLs map[string]string
}

// Outcome distinguishes the business results of a match
type Outcome string

const (
	OutcomeMatched          Outcome = "matched"
	OutcomeMatchedNoProduct Outcome = "matched_no_product"
	OutcomeNoSizeMatch      Outcome = "no_size_match"
)

// Recommendation is one matched size interval and the products it yields
type Recommendation struct {
	SizeLabel    string            `json:"sizeLabel"`
	GroupID      string            `json:"groupId"`
	ProductCodes []string          `json:"productCodes"`
	ProductURLs  map[string]string `json:"productUrls,omitempty"`
}

// RecommendationSet is the ordered matcher output
type RecommendationSet struct {
	Outcome         Outcome          `json:"outcome"`
	CalcUpper       float64          `json:"calcUpper"`
	Lower           float64          `json:"lower"`
	Attribute       string           `json:"attribute"`
	Adjusted        bool             `json:"adjusted"`
	Recommendations []Recommendation `json:"recommendations"`
}

// MatchRequest is the matcher input
type MatchRequest struct {
	Upper         float64
	Lower         float64
	Attribute     string
	SpecialAdjust bool
}

// RecommendationRequest is a full recommendation cycle request
type RecommendationRequest struct {
	Name                string   `json:"name"`
	Email               string   `json:"email"`
	UpperBust           float64  `json:"upperBust" binding:"required"`
	LowerBust           float64  `json:"lowerBust" binding:"required"`
	ShoulderNippleLeft  float64  `json:"shoulderNippleLeft"`
	ShoulderNippleRight float64  `json:"shoulderNippleRight"`
	Attribute           string   `json:"attribute"`
	SpecialAdjust       bool     `json:"specialAdjust"`
	Tags                []string `json:"tags,omitempty"`
}

// ScanRecommendationRequest resolves a scan by keyword and then recommends
type ScanRecommendationRequest struct {
	Keyword       string `json:"keyword" binding:"required"`
	Email         string `json:"email"`
	Attribute     string `json:"attribute,omitempty"`
	SpecialAdjust bool   `json:"specialAdjust"`
}

// RecommendationResult is what a cycle hands to the presentation layer
type RecommendationResult struct {
	Set         *RecommendationSet   `json:"set"`
	Measurement *ResolvedMeasurement `json:"measurement,omitempty"`
	Report      string               `json:"report"`
	Summary     string               `json:"summary"`
	EmailSent   bool                 `json:"emailSent"`
	AuditLogged bool                 `json:"auditLogged"`
}

// AuditEntry is one row appended to the audit log per completed cycle
type AuditEntry struct {
	ID                  string    `db:"id" json:"id"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	Name                string    `db:"name" json:"name"`
	Email               string    `db:"email" json:"email"`
	UpperBust           float64   `db:"upper_bust" json:"upperBust"`
	LowerBust           float64   `db:"lower_bust" json:"lowerBust"`
	ShoulderNippleLeft  float64   `db:"shoulder_nipple_left" json:"shoulderNippleLeft"`
	ShoulderNippleRight float64   `db:"shoulder_nipple_right" json:"shoulderNippleRight"`
	Attribute           string    `db:"attribute" json:"attribute"`
	Summary             string    `db:"summary" json:"summary"`
	Outcome             string    `db:"outcome" json:"outcome"`
}
