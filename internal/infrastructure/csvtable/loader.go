package csvtable

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dailybelle/sizeadvisor/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/traditionalchinese"
)

// DefaultEncodings is the decoding priority used when none is configured
var DefaultEncodings = []string{"utf-8-sig", "utf-8", "cp950", "big5"}

// DefaultGroupColumn holds size-group ids; exports sometimes separate groups with "."
const DefaultGroupColumn = "對應尺寸群組"

var (
	errEmptyTable       = errors.New("no columns to parse")
	errInvalidSequence  = errors.New("invalid byte sequence")
	errUnknownEncoding  = errors.New("unsupported encoding")
	utf8BOM             = []byte{0xEF, 0xBB, 0xBF}
	replacementRuneUTF8 = []byte(string(utf8.RuneError))
)

// LoaderConfig holds configuration for the table loader
type LoaderConfig struct {
	Encodings   []string
	GroupColumn string
	CacheTTL    time.Duration // 0 keeps tables for the process lifetime
}

// Table is a decoded CSV file: one header row and string cells
type Table struct {
	Path     string
	Encoding string
	Header   []string
	Rows     [][]string
	index    map[string]int
}

func newTable(path, enc string, header []string, rows [][]string) *Table {
	t := &Table{Path: path, Encoding: enc, Header: header, Rows: rows, index: make(map[string]int, len(header))}
	for i, name := range header {
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
	return t
}

// Column returns the index of a header name.
func (t *Table) Column(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Loader reads lookup tables from disk and caches them by path and content hash
type Loader struct {
	cache       domain.CacheRepository
	encodings   []string
	groupColumn string
	ttl         time.Duration
	logger      *zap.Logger
}

// NewLoader creates a new table loader
func NewLoader(cache domain.CacheRepository, config LoaderConfig, logger *zap.Logger) *Loader {
	encodings := config.Encodings
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}
	groupColumn := config.GroupColumn
	if groupColumn == "" {
		groupColumn = DefaultGroupColumn
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{
		cache:       cache,
		encodings:   encodings,
		groupColumn: groupColumn,
		ttl:         config.CacheTTL,
		logger:      logger.Named("csvtable"),
	}
}

// Load decodes the CSV file at path, trying each configured encoding in order.
// A missing file yields *domain.NotFoundError with the absolute path; a file no
// encoding can parse yields *domain.DecodeError with the last failure.
func (l *Loader) Load(ctx context.Context, path string) (*Table, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.NotFoundError{Path: abs}
		}
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}

	sum := sha256.Sum256(data)
	cacheKey := fmt.Sprintf("table:%s:%s", abs, hex.EncodeToString(sum[:]))

	if l.cache != nil {
		if cached, err := l.cache.Get(ctx, cacheKey); err == nil {
			if table, ok := cached.(*Table); ok {
				return table, nil
			}
		}
	}

	var lastErr error
	for _, enc := range l.encodings {
		text, err := decodeText(enc, data)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", enc, err)
			continue
		}

		header, rows, err := parseCSV(text)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", enc, err)
			continue
		}

		table := newTable(abs, enc, header, rows)
		l.normalizeGroups(table)

		l.logger.Debug("table loaded",
			zap.String("path", abs),
			zap.String("encoding", enc),
			zap.Int("rows", len(rows)))

		if l.cache != nil {
			if err := l.cache.Set(ctx, cacheKey, table, l.ttl); err != nil {
				l.logger.Warn("table cache write failed", zap.String("path", abs), zap.Error(err))
			}
		}
		return table, nil
	}

	return nil, &domain.DecodeError{Path: abs, Encodings: l.encodings, Err: lastErr}
}

// normalizeGroups rewrites "." to "," in the group column. Applying it twice is a no-op.
func (l *Loader) normalizeGroups(t *Table) {
	col, ok := t.Column(l.groupColumn)
	if !ok {
		return
	}
	for _, row := range t.Rows {
		row[col] = NormalizeGroupID(row[col])
	}
}

// NormalizeGroupID converts period-separated group lists to the canonical comma form.
func NormalizeGroupID(s string) string {
	return strings.ReplaceAll(s, ".", ",")
}

func decodeText(name string, data []byte) (string, error) {
	var dec *encoding.Decoder

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8-sig", "utf8-sig":
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return "", errInvalidSequence
		}
		return string(data), nil
	case "utf-8", "utf8":
		if !utf8.Valid(data) {
			return "", errInvalidSequence
		}
		return string(data), nil
	case "cp950", "big5", "big5-hkscs":
		dec = traditionalchinese.Big5.NewDecoder()
	default:
		enc, err := htmlindex.Get(name)
		if err != nil {
			return "", fmt.Errorf("%w: %s", errUnknownEncoding, name)
		}
		dec = enc.NewDecoder()
	}

	out, err := dec.Bytes(data)
	if err != nil {
		return "", err
	}
	if bytes.Contains(out, replacementRuneUTF8) {
		return "", errInvalidSequence
	}
	return string(out), nil
}

// parseCSV reads a header and data rows. Short rows are padded with empty cells;
// rows longer than the header are an error.
func parseCSV(text string) ([]string, [][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, errEmptyTable
	}
	if err != nil {
		return nil, nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(record) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(record))
		}
		if isBlank(record) {
			continue
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		rows = append(rows, record)
	}

	return header, rows, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
