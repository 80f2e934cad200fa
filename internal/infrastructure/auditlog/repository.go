package auditlog

import (
	"context"
	"fmt"
	"time"

	"github.com/dailybelle/sizeadvisor/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DefaultRecentLimit bounds Recent when the caller passes no limit
const DefaultRecentLimit = 50

// Open connects to the SQLite audit database at path
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db %s: %w", path, err)
	}
	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit db %s: %w", path, err)
	}
	return db, nil
}

// Repository appends recommendation cycles to the audit_log table
type Repository struct {
	db     *sqlx.DB
	now    func() time.Time
	logger *zap.Logger
}

// NewRepository creates an audit repository over db
func NewRepository(db *sqlx.DB, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, now: time.Now, logger: logger.Named("auditlog")}
}

// EnsureTable creates the audit_log table if not exists (idempotent).
func (r *Repository) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS audit_log (
  id TEXT PRIMARY KEY,
  created_at DATETIME NOT NULL,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  upper_bust REAL NOT NULL,
  lower_bust REAL NOT NULL,
  shoulder_nipple_left REAL NOT NULL,
  shoulder_nipple_right REAL NOT NULL,
  attribute TEXT NOT NULL,
  summary TEXT NOT NULL,
  outcome TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Append inserts one row. A blank ID and zero timestamp are filled in.
func (r *Repository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	const q = `INSERT INTO audit_log (id,created_at,name,email,upper_bust,lower_bust,shoulder_nipple_left,shoulder_nipple_right,attribute,summary,outcome)
		VALUES (:id,:created_at,:name,:email,:upper_bust,:lower_bust,:shoulder_nipple_left,:shoulder_nipple_right,:attribute,:summary,:outcome)`
	if _, err := r.db.NamedExecContext(ctx, q, entry); err != nil {
		return fmt.Errorf("append audit row: %w", err)
	}

	r.logger.Debug("audit row appended", zap.String("id", entry.ID), zap.String("outcome", entry.Outcome))
	return nil
}

// Recent returns up to limit rows, newest first
func (r *Repository) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	const q = `SELECT id,created_at,name,email,upper_bust,lower_bust,shoulder_nipple_left,shoulder_nipple_right,attribute,summary,outcome
		FROM audit_log ORDER BY created_at DESC, rowid DESC LIMIT ?`
	rows := []domain.AuditEntry{}
	if err := r.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, fmt.Errorf("read audit rows: %w", err)
	}
	return rows, nil
}
