package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ScanProvider defines the interface for the remote 3D-scan measurement API
type ScanProvider interface {
	ListScanRecords(ctx context.Context, limit, offset int) ([]ScanRecord, error)
	GetUser(ctx context.Context, userID string) (*UserProfile, error)
	GetMeasurements(ctx context.Context, scanID string, pose Pose) (MeasurementPayload, error)
}

// Notifier delivers a plain-text report to an address
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// AuditLogger appends one row per completed recommendation cycle
type AuditLogger interface {
	Append(ctx context.Context, entry *AuditEntry) error
	Recent(ctx context.Context, limit int) ([]AuditEntry, error)
}
