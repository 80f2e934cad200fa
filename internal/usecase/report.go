package usecase

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dailybelle/sizeadvisor/internal/domain"
)

// User-facing report text
const (
	ReportTitle        = "【黛莉貝爾建議報表】"
	ReportSubject      = "您的黛莉貝爾專業尺寸建議報告"
	noSizeMatchText    = "查無匹配數據，請嘗試手動微調測量值。"
	genericProductText = "查無對應胸型的特定款式，建議選擇通用款。"
)

// RenderReport builds the plain-text report sent to the customer
func RenderReport(req *domain.RecommendationRequest, set *domain.RecommendationSet) string {
	var b strings.Builder

	b.WriteString(ReportTitle + "\n")
	if req.Name != "" {
		fmt.Fprintf(&b, "親愛的 %s 您好：\n\n", req.Name)
	}
	b.WriteString("測量數據：\n")
	fmt.Fprintf(&b, "  - 上胸圍 %s cm / 下胸圍 %s cm\n", formatCM(req.UpperBust), formatCM(req.LowerBust))
	fmt.Fprintf(&b, "  - 頸肩-乳尖(左) %s cm / 頸肩-乳尖(右) %s cm\n",
		formatCM(req.ShoulderNippleLeft), formatCM(req.ShoulderNippleRight))
	fmt.Fprintf(&b, "判定屬性：%s\n\n", set.Attribute)

	if set.Outcome == domain.OutcomeNoSizeMatch {
		b.WriteString(noSizeMatchText + "\n")
		return b.String()
	}

	for i, rec := range set.Recommendations {
		fmt.Fprintf(&b, "方案 %d：%s (群組 %s)\n", i+1, rec.SizeLabel, rec.GroupID)
		if len(rec.ProductCodes) == 0 {
			b.WriteString(genericProductText + "\n\n")
			continue
		}
		fmt.Fprintf(&b, "建議款式：%s\n", strings.Join(rec.ProductCodes, ", "))
		for _, code := range rec.ProductCodes {
			if link, ok := rec.ProductURLs[code]; ok {
				fmt.Fprintf(&b, "  %s %s\n", code, link)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSummary builds the one-line audit summary. Plans keep their position in the
// matched list, so a row without products leaves a gap in the numbering.
func RenderSummary(set *domain.RecommendationSet) string {
	var b strings.Builder
	for i, rec := range set.Recommendations {
		if len(rec.ProductCodes) == 0 {
			continue
		}
		fmt.Fprintf(&b, "[方案%d: 尺寸%s, 款式:%s] ", i+1, rec.SizeLabel, strings.Join(rec.ProductCodes, "/"))
	}
	return b.String()
}

// formatCM prints whole numbers with one decimal and keeps other values exact
func formatCM(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
