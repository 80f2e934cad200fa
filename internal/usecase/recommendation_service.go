package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dailybelle/sizeadvisor/internal/domain"
	"go.uber.org/zap"
)

// notProvided fills blank identity fields in the audit log
const notProvided = "未提供"

// RecommendationServiceConfig holds configuration for the recommendation service
type RecommendationServiceConfig struct {
	MailSubject string
}

// RecommendationService runs one recommendation cycle: match, render, audit, notify
type RecommendationService struct {
	matcher      *MatchingService
	measurements *MeasurementService
	notifier     domain.Notifier
	audit        domain.AuditLogger
	subject      string
	now          func() time.Time
	logger       *zap.Logger
}

// NewRecommendationService creates a new recommendation service with dependencies.
// measurements, notifier and audit may be nil; the matching steps that need them are skipped.
func NewRecommendationService(
	matcher *MatchingService,
	measurements *MeasurementService,
	notifier domain.Notifier,
	audit domain.AuditLogger,
	config RecommendationServiceConfig,
	logger *zap.Logger,
) *RecommendationService {
	subject := config.MailSubject
	if subject == "" {
		subject = ReportSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RecommendationService{
		matcher:      matcher,
		measurements: measurements,
		notifier:     notifier,
		audit:        audit,
		subject:      subject,
		now:          time.Now,
		logger:       logger.Named("recommendations"),
	}
}

// Recommend matches the given readings and delivers the report.
// Flow: validate -> match -> render -> audit -> email (only when a size matched)
func (s *RecommendationService) Recommend(ctx context.Context, req *domain.RecommendationRequest) (*domain.RecommendationResult, error) {
	if req == nil {
		return nil, domain.ErrInvalidRequest
	}
	if req.UpperBust <= 0 || req.LowerBust <= 0 {
		return nil, fmt.Errorf("%w: bust measurements must be positive", domain.ErrInvalidRequest)
	}

	set := s.matcher.Match(domain.MatchRequest{
		Upper:         req.UpperBust,
		Lower:         req.LowerBust,
		Attribute:     req.Attribute,
		SpecialAdjust: req.SpecialAdjust,
	})

	result := &domain.RecommendationResult{
		Set:     set,
		Report:  RenderReport(req, set),
		Summary: RenderSummary(set),
	}

	result.AuditLogged = s.appendAudit(ctx, req, result)

	if req.Email != "" && set.Outcome != domain.OutcomeNoSizeMatch && s.notifier != nil {
		if err := s.notifier.Send(ctx, req.Email, s.subject, result.Report); err != nil {
			s.logger.Warn("report email failed", zap.String("to", req.Email), zap.Error(err))
		} else {
			result.EmailSent = true
		}
	}

	s.logger.Info("recommendation complete",
		zap.String("outcome", string(set.Outcome)),
		zap.Int("plans", len(set.Recommendations)),
		zap.Bool("audit_logged", result.AuditLogged),
		zap.Bool("email_sent", result.EmailSent))

	return result, nil
}

// RecommendFromScan resolves the scan behind keyword and recommends from its readings.
// An explicit attribute overrides the detected one.
func (s *RecommendationService) RecommendFromScan(ctx context.Context, req *domain.ScanRecommendationRequest) (*domain.RecommendationResult, error) {
	if req == nil {
		return nil, domain.ErrInvalidRequest
	}

	m, err := s.LookupScan(ctx, req.Keyword)
	if err != nil {
		return nil, err
	}

	attr := m.DetectedAttribute
	if req.Attribute != "" {
		attr = req.Attribute
	}

	result, err := s.Recommend(ctx, &domain.RecommendationRequest{
		Name:                m.DisplayName,
		Email:               req.Email,
		UpperBust:           m.UpperBust,
		LowerBust:           m.LowerBust,
		ShoulderNippleLeft:  m.ShoulderNippleLeft,
		ShoulderNippleRight: m.ShoulderNippleRight,
		Attribute:           attr,
		SpecialAdjust:       req.SpecialAdjust,
		Tags:                m.DisplayTags,
	})
	if err != nil {
		return nil, err
	}
	result.Measurement = m
	return result, nil
}

// LookupScan resolves the newest scan for keyword without matching
func (s *RecommendationService) LookupScan(ctx context.Context, keyword string) (*domain.ResolvedMeasurement, error) {
	if s.measurements == nil {
		return nil, fmt.Errorf("%w: scan lookup is not configured", domain.ErrConnectivity)
	}
	return s.measurements.Resolve(ctx, keyword)
}

// RecentAudit returns the newest audit rows first
func (s *RecommendationService) RecentAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if s.audit == nil {
		return []domain.AuditEntry{}, nil
	}
	return s.audit.Recent(ctx, limit)
}

func (s *RecommendationService) appendAudit(ctx context.Context, req *domain.RecommendationRequest, result *domain.RecommendationResult) bool {
	if s.audit == nil {
		return false
	}

	entry := &domain.AuditEntry{
		CreatedAt:           s.now(),
		Name:                orNotProvided(req.Name),
		Email:               orNotProvided(req.Email),
		UpperBust:           req.UpperBust,
		LowerBust:           req.LowerBust,
		ShoulderNippleLeft:  req.ShoulderNippleLeft,
		ShoulderNippleRight: req.ShoulderNippleRight,
		Attribute:           result.Set.Attribute,
		Summary:             result.Summary,
		Outcome:             string(result.Set.Outcome),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", zap.Error(err))
		return false
	}
	return true
}

func orNotProvided(s string) string {
	if s == "" {
		return notProvided
	}
	return s
}
