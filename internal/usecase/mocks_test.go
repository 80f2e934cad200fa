package usecase

import (
	"context"
	"errors"

	"github.com/dailybelle/sizeadvisor/internal/domain"
)

// MockScanProvider is a mock implementation of domain.ScanProvider
type MockScanProvider struct {
	records    []domain.ScanRecord
	listError  error
	users      map[string]*domain.UserProfile
	userErrors map[string]error
	payloads   map[domain.Pose]domain.MeasurementPayload
	poseErrors map[domain.Pose]error
	userCalls  []string
	poseCalls  []domain.Pose
	listLimit  int
	listCalled bool
}

func NewMockScanProvider() *MockScanProvider {
	return &MockScanProvider{
		users:      make(map[string]*domain.UserProfile),
		userErrors: make(map[string]error),
		payloads:   make(map[domain.Pose]domain.MeasurementPayload),
		poseErrors: make(map[domain.Pose]error),
	}
}

func (m *MockScanProvider) ListScanRecords(ctx context.Context, limit, offset int) ([]domain.ScanRecord, error) {
	m.listCalled = true
	m.listLimit = limit
	if m.listError != nil {
		return nil, m.listError
	}
	return m.records, nil
}

func (m *MockScanProvider) GetUser(ctx context.Context, userID string) (*domain.UserProfile, error) {
	m.userCalls = append(m.userCalls, userID)
	if err, ok := m.userErrors[userID]; ok {
		return nil, err
	}
	if user, ok := m.users[userID]; ok {
		return user, nil
	}
	return nil, &domain.StatusError{Endpoint: "users", StatusCode: 404}
}

func (m *MockScanProvider) GetMeasurements(ctx context.Context, scanID string, pose domain.Pose) (domain.MeasurementPayload, error) {
	m.poseCalls = append(m.poseCalls, pose)
	if err, ok := m.poseErrors[pose]; ok {
		return nil, err
	}
	return m.payloads[pose], nil
}

// MockNotifier records sent reports
type MockNotifier struct {
	sendError error
	sent      []sentMail
}

type sentMail struct {
	to, subject, body string
}

func (m *MockNotifier) Send(ctx context.Context, to, subject, body string) error {
	if m.sendError != nil {
		return m.sendError
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

// MockAuditLogger keeps rows in memory
type MockAuditLogger struct {
	appendError error
	entries     []domain.AuditEntry
}

func (m *MockAuditLogger) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if m.appendError != nil {
		return m.appendError
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *MockAuditLogger) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]domain.AuditEntry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

var errBoom = errors.New("boom")

func payload(values map[string]any) domain.MeasurementPayload {
	p := make(domain.MeasurementPayload, len(values))
	for k, v := range values {
		p[k] = domain.ParseMeasurementValue(v)
	}
	return p
}

// testCatalog is the size/product data used across the matcher tests
func testCatalog() *domain.Catalog {
	return &domain.Catalog{
		Sizes: []domain.SizeIntervalRow{
			{UpperMin: 80, UpperMax: 85, LowerMin: 62, LowerMax: 68, GroupID: "G1", SizeLabel: "70B"},
			{UpperMin: 84, UpperMax: 89, LowerMin: 66, LowerMax: 70, GroupID: "G2", SizeLabel: "75B"},
			{UpperMin: 86, UpperMax: 90, LowerMin: 62, LowerMax: 68, GroupID: "G3", SizeLabel: "70D"},
		},
		Products: []domain.ProductMappingRow{
			{GroupID: "G1", ProductCode: "P1"},
			{GroupID: "G1", ProductCode: "P2"},
			{GroupID: "G1", ProductCode: "P1"},
			{GroupID: "G2", ProductCode: "A"},
			{GroupID: "G2", ProductCode: "B"},
			{GroupID: "G2", ProductCode: "C"},
			{GroupID: "G3", ProductCode: "P9"},
		},
		Attributes: []domain.AttributeProductRow{
			{Attribute: "外擴", ProductCode: "B"},
			{Attribute: "外擴", ProductCode: "D"},
			{Attribute: "成熟承托型", ProductCode: "P9"},
		},
		ProductURLs: map[string]string{"P1": "https://shop.example/p1"},
	}
}
