package tg3d

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dailybelle/sizeadvisor/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds connection settings for the TG3D scan API
type Config struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RetryMax          int     // retries after the first attempt
	RequestsPerSecond float64 // shared budget for every call
	Burst             int
	PoseInterval      time.Duration // minimum spacing between measurement calls
	BackoffBase       time.Duration
}

const (
	defaultTimeout      = 10 * time.Second
	defaultRetryMax     = 2
	defaultRPS          = 5.0
	defaultBurst        = 5
	defaultPoseInterval = 500 * time.Millisecond
	defaultBackoffBase  = 500 * time.Millisecond
)

// Client handles communication with the TG3D scan API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	poseLimiter *rate.Limiter
	retryMax    int
	backoffBase time.Duration
	logger      *zap.Logger
}

// NewClient creates a new TG3D API client
func NewClient(config Config, logger *zap.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retryMax := config.RetryMax
	if retryMax <= 0 {
		retryMax = defaultRetryMax
	}
	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRPS
	}
	burst := config.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	poseInterval := config.PoseInterval
	if poseInterval <= 0 {
		poseInterval = defaultPoseInterval
	}
	backoffBase := config.BackoffBase
	if backoffBase <= 0 {
		backoffBase = defaultBackoffBase
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      config.APIKey,
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
		poseLimiter: rate.NewLimiter(rate.Every(poseInterval), 1),
		retryMax:    retryMax,
		backoffBase: backoffBase,
		logger:      logger.Named("tg3d"),
	}
}

// exponentialBackoff returns the wait before retry number attempt (1-based)
func exponentialBackoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(1<<(attempt-1))
}

// doRequest executes an HTTP GET request with proper headers
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "DailyBelle-SizeAdvisor/1.0")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// get issues a rate-limited GET and retries transport failures, 429 and 5xx.
// It returns the final status and body; err is set only when no response arrived.
func (c *Client) get(ctx context.Context, path string, params url.Values) (int, []byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	var (
		lastErr    error
		lastStatus int
		lastBody   []byte
	)
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(exponentialBackoff(c.backoffBase, attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return 0, nil, ctx.Err()
			case <-timer.C:
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return 0, nil, ctx.Err()
			}
			c.logger.Warn("request failed", zap.String("path", path), zap.Int("attempt", attempt+1), zap.Error(err))
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			c.logger.Warn("reading body failed", zap.String("path", path), zap.Int("attempt", attempt+1), zap.Error(err))
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			c.logger.Warn("transient status", zap.String("path", path), zap.Int("attempt", attempt+1), zap.Int("status", resp.StatusCode))
			lastErr, lastStatus, lastBody = nil, resp.StatusCode, body
			continue
		}

		c.logger.Debug("request done", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return resp.StatusCode, body, nil
	}

	if lastErr != nil {
		return 0, nil, lastErr
	}
	return lastStatus, lastBody, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// ListScanRecords returns the newest scan records. Any failure here is fatal to the cycle.
func (c *Client) ListScanRecords(ctx context.Context, limit, offset int) ([]domain.ScanRecord, error) {
	const endpoint = "scan_records"

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	status, body, err := c.get(ctx, "/scan_records", params)
	if err != nil {
		return nil, &domain.ConnectivityError{Endpoint: endpoint, Err: err}
	}
	if !success(status) {
		return nil, &domain.ConnectivityError{Endpoint: endpoint, StatusCode: status}
	}

	var list domain.ScanRecordList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, &domain.ParseError{Endpoint: endpoint, Err: err}
	}

	c.logger.Info("scan records listed", zap.Int("count", len(list.Records)))
	return list.Records, nil
}

// userResponse is the body of the user endpoint; the nickname moved between versions
type userResponse struct {
	User struct {
		Username string `json:"username"`
		NickName string `json:"nick_name"`
	} `json:"user"`
	Nickname string `json:"nickname"`
	RealName string `json:"real_name"`
}

// GetUser resolves the owner of a scan record. Non-success statuses return *domain.StatusError.
func (c *Client) GetUser(ctx context.Context, userID string) (*domain.UserProfile, error) {
	const endpoint = "users"

	status, body, err := c.get(ctx, "/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, &domain.ConnectivityError{Endpoint: endpoint, Err: err}
	}
	if !success(status) {
		return nil, &domain.StatusError{Endpoint: endpoint, StatusCode: status}
	}

	var resp userResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.ParseError{Endpoint: endpoint, Err: err}
	}

	nickname := resp.User.NickName
	if nickname == "" {
		nickname = resp.Nickname
	}
	return &domain.UserProfile{
		UserID:   userID,
		Username: resp.User.Username,
		RealName: resp.RealName,
		Nickname: nickname,
	}, nil
}

// GetMeasurements fetches the size payload of one scan under one pose. Calls are
// spaced by the pose interval to respect the provider's limits.
func (c *Client) GetMeasurements(ctx context.Context, scanID string, pose domain.Pose) (domain.MeasurementPayload, error) {
	endpoint := "size_xt/" + string(pose)

	if err := c.poseLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("pose limiter: %w", err)
	}

	params := url.Values{}
	params.Set("pose", string(pose))

	status, body, err := c.get(ctx, "/scan_records/"+url.PathEscape(scanID)+"/size_xt", params)
	if err != nil {
		return nil, &domain.ConnectivityError{Endpoint: endpoint, Err: err}
	}
	if !success(status) {
		return nil, &domain.StatusError{Endpoint: endpoint, StatusCode: status}
	}

	var resp domain.MeasurementResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.ParseError{Endpoint: endpoint, Err: err}
	}
	if resp.Measurement == nil {
		resp.Measurement = domain.MeasurementPayload{}
	}
	return resp.Measurement, nil
}
