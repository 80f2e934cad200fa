package usecase

import (
	"testing"

	"github.com/dailybelle/sizeadvisor/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRenderReport(t *testing.T) {
	req := &domain.RecommendationRequest{
		Name:                "小美",
		UpperBust:           82,
		LowerBust:           65.5,
		ShoulderNippleLeft:  19.5,
		ShoulderNippleRight: 20,
	}
	set := &domain.RecommendationSet{
		Outcome:   domain.OutcomeMatched,
		Attribute: "下垂",
		Recommendations: []domain.Recommendation{
			{SizeLabel: "70B", GroupID: "G1", ProductCodes: []string{"P1", "P2"}, ProductURLs: map[string]string{"P1": "https://shop.example/p1"}},
			{SizeLabel: "75B", GroupID: "G2", ProductCodes: []string{}},
		},
	}

	want := "【黛莉貝爾建議報表】\n" +
		"親愛的 小美 您好：\n\n" +
		"測量數據：\n" +
		"  - 上胸圍 82.0 cm / 下胸圍 65.5 cm\n" +
		"  - 頸肩-乳尖(左) 19.5 cm / 頸肩-乳尖(右) 20.0 cm\n" +
		"判定屬性：下垂\n\n" +
		"方案 1：70B (群組 G1)\n" +
		"建議款式：P1, P2\n" +
		"  P1 https://shop.example/p1\n\n" +
		"方案 2：75B (群組 G2)\n" +
		"查無對應胸型的特定款式，建議選擇通用款。\n\n"

	assert.Equal(t, want, RenderReport(req, set))
}

func TestRenderReport_NoSizeMatch(t *testing.T) {
	req := &domain.RecommendationRequest{UpperBust: 120, LowerBust: 65}
	set := &domain.RecommendationSet{Outcome: domain.OutcomeNoSizeMatch, Attribute: domain.AttributeUndetermined}

	report := RenderReport(req, set)

	assert.NotContains(t, report, "親愛的")
	assert.Contains(t, report, "上胸圍 120.0 cm")
	assert.Contains(t, report, "查無匹配數據")
	assert.NotContains(t, report, "方案")
}

func TestRenderSummary(t *testing.T) {
	set := &domain.RecommendationSet{
		Recommendations: []domain.Recommendation{
			{SizeLabel: "70B", ProductCodes: []string{}},
			{SizeLabel: "75B", ProductCodes: []string{"A", "B"}},
			{SizeLabel: "75C", ProductCodes: []string{"C"}},
		},
	}

	assert.Equal(t, "[方案2: 尺寸75B, 款式:A/B] [方案3: 尺寸75C, 款式:C] ", RenderSummary(set))
	assert.Empty(t, RenderSummary(&domain.RecommendationSet{}))
}

func TestFormatCM(t *testing.T) {
	assert.Equal(t, "82.0", formatCM(82))
	assert.Equal(t, "82.5", formatCM(82.5))
	assert.Equal(t, "67.25", formatCM(67.25))
}
