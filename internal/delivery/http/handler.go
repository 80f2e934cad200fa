package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dailybelle/sizeadvisor/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// defaultAuditLimit is used when /audit is called without ?limit
const defaultAuditLimit = 20

// RecommendationUseCase is the application surface the handlers drive
type RecommendationUseCase interface {
	Recommend(ctx context.Context, req *domain.RecommendationRequest) (*domain.RecommendationResult, error)
	RecommendFromScan(ctx context.Context, req *domain.ScanRecommendationRequest) (*domain.RecommendationResult, error)
	LookupScan(ctx context.Context, keyword string) (*domain.ResolvedMeasurement, error)
	RecentAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	recommendations RecommendationUseCase
	logger          *zap.Logger
}

// NewHandler creates a new HTTP handler. A nil use case answers 503 on every API route.
func NewHandler(recommendations RecommendationUseCase, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{recommendations: recommendations, logger: logger.Named("http")}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "sizeadvisor",
		"version": Version,
	})
}

// LookupScan handles GET /api/v1/scans/:keyword
func (h *Handler) LookupScan(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	keyword := strings.TrimSpace(c.Param("keyword"))
	m, err := h.recommendations.LookupScan(c.Request.Context(), keyword)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// Recommend handles POST /api/v1/recommendations with manual readings
func (h *Handler) Recommend(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	var req domain.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := h.recommendations.Recommend(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RecommendFromScan handles POST /api/v1/recommendations/scan
func (h *Handler) RecommendFromScan(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	var req domain.ScanRecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := h.recommendations.RecommendFromScan(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RecentAudit handles GET /api/v1/audit?limit=N
func (h *Handler) RecentAudit(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := h.recommendations.RecentAudit(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func (h *Handler) configured(c *gin.Context) bool {
	if h.recommendations != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recommendation service not configured"})
	return false
}

// writeError maps domain errors to status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrConnectivity), errors.Is(err, domain.ErrParse):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	default:
		h.logger.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
