package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dailybelle/sizeadvisor/internal/domain"
	"go.uber.org/zap"
)

// DefaultRecordLimit is how many of the newest scan records are searched
const DefaultRecordLimit = 20

// MeasurementServiceConfig holds configuration for the measurement service
type MeasurementServiceConfig struct {
	RecordLimit int
}

// MeasurementService finds the newest scan owned by an account and resolves its readings
type MeasurementService struct {
	provider     domain.ScanProvider
	preprocessor *QueryPreprocessor
	classifier   AttributeClassifier
	normalizer   *Normalizer
	recordLimit  int
	logger       *zap.Logger
}

// NewMeasurementService creates a new measurement service with dependencies
func NewMeasurementService(
	provider domain.ScanProvider,
	preprocessor *QueryPreprocessor,
	classifier AttributeClassifier,
	normalizer *Normalizer,
	config MeasurementServiceConfig,
	logger *zap.Logger,
) *MeasurementService {
	limit := config.RecordLimit
	if limit <= 0 {
		limit = DefaultRecordLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MeasurementService{
		provider:     provider,
		preprocessor: preprocessor,
		classifier:   classifier,
		normalizer:   normalizer,
		recordLimit:  limit,
		logger:       logger.Named("measurements"),
	}
}

// Resolve searches the newest records for the first one whose owner's username
// matches keyword and resolves its pose readings.
// Flow: list records -> user per record (skip failures) -> first match -> pose I -> pose A
func (s *MeasurementService) Resolve(ctx context.Context, keyword string) (*domain.ResolvedMeasurement, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("%w: keyword is required", domain.ErrInvalidRequest)
	}

	records, err := s.provider.ListScanRecords(ctx, s.recordLimit, 0)
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		if record.UserID == "" {
			continue
		}

		user, err := s.provider.GetUser(ctx, string(record.UserID))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, domain.ErrParse) {
				return nil, err
			}
			s.logger.Warn("skipping record, user lookup failed",
				zap.String("user_id", string(record.UserID)),
				zap.Error(err))
			continue
		}

		if !s.preprocessor.MatchUsername(user.Username, keyword) {
			continue
		}

		s.logger.Info("scan record matched",
			zap.String("keyword", keyword),
			zap.String("username", user.Username),
			zap.String("scan_id", string(record.ScanID)))
		return s.resolveRecord(ctx, record, user)
	}

	return nil, &domain.NotFoundError{Keyword: keyword}
}

func (s *MeasurementService) resolveRecord(ctx context.Context, record domain.ScanRecord, user *domain.UserProfile) (*domain.ResolvedMeasurement, error) {
	m := &domain.ResolvedMeasurement{
		Username:          user.Username,
		DisplayName:       user.DisplayName(),
		ScanID:            string(record.ScanID),
		DetectedAttribute: s.classifier.Classify(record.TagList),
	}
	m.BodyShape, m.DisplayTags = SplitTags(record.TagList)

	poseI, err := s.fetchPose(ctx, m, domain.PoseI)
	if err != nil {
		return nil, err
	}
	poseA, err := s.fetchPose(ctx, m, domain.PoseA)
	if err != nil {
		return nil, err
	}

	s.normalizer.Apply(m, poseI, poseA)
	if m.Degraded {
		s.logger.Warn("measurement defaults used",
			zap.String("scan_id", m.ScanID),
			zap.Strings("fields", m.DefaultedFields))
	}
	return m, nil
}

// fetchPose returns nil with a warning on m when the pose payload is unavailable;
// only cancellation aborts.
func (s *MeasurementService) fetchPose(ctx context.Context, m *domain.ResolvedMeasurement, pose domain.Pose) (domain.MeasurementPayload, error) {
	payload, err := s.provider.GetMeasurements(ctx, m.ScanID, pose)
	if err == nil {
		return payload, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	s.logger.Warn("pose measurements unavailable",
		zap.String("scan_id", m.ScanID),
		zap.String("pose", string(pose)),
		zap.Error(err))
	m.Warnings = append(m.Warnings, fmt.Sprintf("pose %s: %v", pose, err))
	return nil, nil
}
