package csvtable

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dailybelle/sizeadvisor/internal/domain"
)

// ErrMissingColumn is returned when a mapped column name is absent from a table header
var ErrMissingColumn = errors.New("missing column")

// SizeColumns maps size-interval fields to header names
type SizeColumns struct {
	UpperMin  string
	UpperMax  string
	LowerMin  string
	LowerMax  string
	Group     string
	SizeLabel string
}

// ProductColumns maps product-to-group fields to header names
type ProductColumns struct {
	Group       string
	ProductCode string
}

// AttributeColumns maps attribute-to-product fields to header names
type AttributeColumns struct {
	Attribute   string
	ProductCode string
}

// URLColumns maps product-to-URL fields to header names
type URLColumns struct {
	ProductCode string
	URL         string
}

// CatalogConfig names the table files and their column mapping. AttributeFile and
// URLFile are optional.
type CatalogConfig struct {
	Dir           string
	SizeFile      string
	ProductFile   string
	AttributeFile string
	URLFile       string

	SizeColumns      SizeColumns
	ProductColumns   ProductColumns
	AttributeColumns AttributeColumns
	URLColumns       URLColumns
}

// DefaultCatalogConfig returns the column names used by the store's spreadsheet exports.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		SizeFile:      "調整尺寸_2.58版.csv",
		ProductFile:   "商品對應尺寸表.csv",
		AttributeFile: "胸型屬性.csv",
		URLFile:       "款式官網連結.csv",
		SizeColumns: SizeColumns{
			UpperMin:  "上胸圍1",
			UpperMax:  "上胸圍2",
			LowerMin:  "下胸圍1",
			LowerMax:  "下胸圍2",
			Group:     DefaultGroupColumn,
			SizeLabel: "對應尺寸請使用.號隔開",
		},
		ProductColumns:   ProductColumns{Group: DefaultGroupColumn, ProductCode: "款式代號"},
		AttributeColumns: AttributeColumns{Attribute: "胸型屬性", ProductCode: "款式代號"},
		URLColumns:       URLColumns{ProductCode: "款式號碼", URL: "官網連結"},
	}
}

// Issue is one problem found in the reference data
type Issue struct {
	Table   string `json:"table"`
	Row     int    `json:"row,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Row > 0 {
		return fmt.Sprintf("%s row %d: %s", i.Table, i.Row, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Table, i.Message)
}

// BuildCatalog loads every configured table and converts it into typed rows.
// Size rows with unparseable or inverted bounds are skipped and reported as issues;
// product groups absent from the size table are reported but kept.
func BuildCatalog(ctx context.Context, loader *Loader, config CatalogConfig) (*domain.Catalog, []Issue, error) {
	var issues []Issue
	catalog := &domain.Catalog{ProductURLs: map[string]string{}}

	sizeTable, err := loader.Load(ctx, resolvePath(config.Dir, config.SizeFile))
	if err != nil {
		return nil, nil, err
	}
	sizes, sizeIssues, err := buildSizes(sizeTable, config.SizeColumns)
	if err != nil {
		return nil, nil, err
	}
	catalog.Sizes = sizes
	issues = append(issues, sizeIssues...)

	productTable, err := loader.Load(ctx, resolvePath(config.Dir, config.ProductFile))
	if err != nil {
		return nil, nil, err
	}
	products, err := buildProducts(productTable, config.ProductColumns)
	if err != nil {
		return nil, nil, err
	}
	catalog.Products = products

	if config.AttributeFile != "" {
		attrTable, err := loader.Load(ctx, resolvePath(config.Dir, config.AttributeFile))
		if err != nil {
			return nil, nil, err
		}
		catalog.Attributes, err = buildAttributes(attrTable, config.AttributeColumns)
		if err != nil {
			return nil, nil, err
		}
	}

	if config.URLFile != "" {
		urlTable, err := loader.Load(ctx, resolvePath(config.Dir, config.URLFile))
		if err != nil {
			return nil, nil, err
		}
		catalog.ProductURLs, err = buildURLs(urlTable, config.URLColumns)
		if err != nil {
			return nil, nil, err
		}
	}

	issues = append(issues, crossCheck(catalog)...)
	return catalog, issues, nil
}

func resolvePath(dir, file string) string {
	if dir == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

func columns(t *Table, names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		col, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w %q in %s", ErrMissingColumn, name, t.Path)
		}
		idx[i] = col
	}
	return idx, nil
}

func buildSizes(t *Table, c SizeColumns) ([]domain.SizeIntervalRow, []Issue, error) {
	idx, err := columns(t, c.UpperMin, c.UpperMax, c.LowerMin, c.LowerMax, c.Group, c.SizeLabel)
	if err != nil {
		return nil, nil, err
	}

	name := filepath.Base(t.Path)
	var rows []domain.SizeIntervalRow
	var issues []Issue

	for i, record := range t.Rows {
		line := i + 2 // header is line 1
		bounds := make([]float64, 4)
		valid := true
		for j := 0; j < 4; j++ {
			f, err := strconv.ParseFloat(strings.TrimSpace(record[idx[j]]), 64)
			if err != nil {
				issues = append(issues, Issue{Table: name, Row: line, Message: fmt.Sprintf("bound %q is not a number", record[idx[j]])})
				valid = false
				break
			}
			bounds[j] = f
		}
		if !valid {
			continue
		}

		row := domain.SizeIntervalRow{
			UpperMin:  bounds[0],
			UpperMax:  bounds[1],
			LowerMin:  bounds[2],
			LowerMax:  bounds[3],
			GroupID:   strings.TrimSpace(record[idx[4]]),
			SizeLabel: strings.TrimSpace(record[idx[5]]),
		}
		if row.UpperMin > row.UpperMax || row.LowerMin > row.LowerMax {
			issues = append(issues, Issue{Table: name, Row: line, Message: "interval minimum exceeds maximum"})
			continue
		}
		rows = append(rows, row)
	}

	return rows, issues, nil
}

func buildProducts(t *Table, c ProductColumns) ([]domain.ProductMappingRow, error) {
	idx, err := columns(t, c.Group, c.ProductCode)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.ProductMappingRow, 0, len(t.Rows))
	for _, record := range t.Rows {
		code := strings.TrimSpace(record[idx[1]])
		if code == "" {
			continue
		}
		rows = append(rows, domain.ProductMappingRow{
			GroupID:     strings.TrimSpace(record[idx[0]]),
			ProductCode: code,
		})
	}
	return rows, nil
}

func buildAttributes(t *Table, c AttributeColumns) ([]domain.AttributeProductRow, error) {
	idx, err := columns(t, c.Attribute, c.ProductCode)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.AttributeProductRow, 0, len(t.Rows))
	for _, record := range t.Rows {
		code := strings.TrimSpace(record[idx[1]])
		if code == "" {
			continue
		}
		rows = append(rows, domain.AttributeProductRow{
			Attribute:   strings.TrimSpace(record[idx[0]]),
			ProductCode: code,
		})
	}
	return rows, nil
}

func buildURLs(t *Table, c URLColumns) (map[string]string, error) {
	idx, err := columns(t, c.ProductCode, c.URL)
	if err != nil {
		return nil, err
	}

	urls := make(map[string]string, len(t.Rows))
	for _, record := range t.Rows {
		code := strings.TrimSpace(record[idx[0]])
		link := strings.TrimSpace(record[idx[1]])
		if code == "" || link == "" {
			continue
		}
		urls[code] = link
	}
	return urls, nil
}

// crossCheck reports product groups the size table never references and size groups
// without any product, both of which surface as empty recommendations.
func crossCheck(c *domain.Catalog) []Issue {
	sizeGroups := make(map[string]bool, len(c.Sizes))
	for _, s := range c.Sizes {
		sizeGroups[s.GroupID] = true
	}
	productGroups := make(map[string]bool)
	for _, p := range c.Products {
		productGroups[p.GroupID] = true
	}

	var issues []Issue
	reported := make(map[string]bool)
	for _, p := range c.Products {
		if !sizeGroups[p.GroupID] && !reported[p.GroupID] {
			reported[p.GroupID] = true
			issues = append(issues, Issue{Table: "products", Message: fmt.Sprintf("group %q is not in the size table", p.GroupID)})
		}
	}
	reported = make(map[string]bool)
	for _, s := range c.Sizes {
		if !productGroups[s.GroupID] && !reported[s.GroupID] {
			reported[s.GroupID] = true
			issues = append(issues, Issue{Table: "sizes", Message: fmt.Sprintf("group %q has no products", s.GroupID)})
		}
	}
	return issues
}
