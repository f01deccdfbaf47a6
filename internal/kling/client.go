package kling

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/maauso/klingclip/internal/auth"
	"github.com/maauso/klingclip/internal/clock"
	"github.com/maauso/klingclip/internal/failure"
)

// DefaultBaseURL is the public Kling API domain.
const DefaultBaseURL = "https://api-singapore.klingai.com"

const submitPath = "/v1/videos/image2video"

// Static errors for client operations.
var (
	// ErrMinterRequired is returned when no token source is provided.
	ErrMinterRequired = fmt.Errorf("%w: kling: token minter is required", failure.ErrConfiguration)
	// ErrJobIDRequired is returned when an empty job ID is passed.
	ErrJobIDRequired = errors.New("kling: job ID is required")
	// ErrNoTaskIDReturned is returned when a 200 submission carries no data.task_id.
	ErrNoTaskIDReturned = fmt.Errorf("%w: kling: no task_id in response", failure.ErrSubmission)
)

// TokenMinter produces a fresh signed token for a point in time.
type TokenMinter interface {
	Mint(now time.Time) (auth.Token, error)
}

// Client defines the operations the lifecycle controller needs from the API.
type Client interface {
	// Submit sends an image-to-video job and returns the remote job ID.
	Submit(ctx context.Context, in SubmitInput) (jobID string, err error)

	// Resolve finds a status route that answers for jobID and returns its payload.
	Resolve(ctx context.Context, jobID string) (Resolution, error)
}

// HTTPClient is the HTTP implementation of Client.
type HTTPClient struct {
	baseURL       string
	minter        TokenMinter
	clock         clock.Clock
	httpClient    *http.Client
	limiter       *rate.Limiter
	defaults      Defaults
	routes        []Route
	submitTimeout time.Duration
	statusTimeout time.Duration
	validate      *validator.Validate
	logger        *slog.Logger
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithBaseURL sets a custom API domain.
func WithBaseURL(url string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithClock sets the clock used to stamp tokens.
func WithClock(clk clock.Clock) ClientOption {
	return func(c *HTTPClient) {
		c.clock = clk
	}
}

// WithRateLimiter paces every outbound API call through l.
func WithRateLimiter(l *rate.Limiter) ClientOption {
	return func(c *HTTPClient) {
		c.limiter = l
	}
}

// WithDefaults overrides the fixed request parameters.
func WithDefaults(d Defaults) ClientOption {
	return func(c *HTTPClient) {
		c.defaults = d
	}
}

// WithRoutes replaces the candidate status routes. Order is priority order.
func WithRoutes(routes ...Route) ClientOption {
	return func(c *HTTPClient) {
		c.routes = append([]Route(nil), routes...)
	}
}

// WithTimeouts sets the per-call timeouts for submission and for each status probe.
func WithTimeouts(submit, status time.Duration) ClientOption {
	return func(c *HTTPClient) {
		if submit > 0 {
			c.submitTimeout = submit
		}
		if status > 0 {
			c.statusTimeout = status
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *HTTPClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a new Kling HTTP client that signs every call with minter.
func NewClient(minter TokenMinter, opts ...ClientOption) (*HTTPClient, error) {
	if minter == nil {
		return nil, ErrMinterRequired
	}

	c := &HTTPClient{
		baseURL:       DefaultBaseURL,
		minter:        minter,
		clock:         clock.Real{},
		httpClient:    &http.Client{},
		defaults:      StandardDefaults(),
		routes:        DefaultRoutes(),
		submitTimeout: 60 * time.Second,
		statusTimeout: 30 * time.Second,
		validate:      validator.New(),
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if len(c.routes) == 0 {
		return nil, fmt.Errorf("%w: kling: at least one status route is required", failure.ErrConfiguration)
	}

	return c, nil
}

// Defaults returns the fixed request parameters in use.
func (c *HTTPClient) Defaults() Defaults {
	return c.defaults
}

// Submit reads the image at in.ImagePath, posts it with the prompt and returns the job ID.
// Every failure after the image is read is reported as failure.ErrSubmission.
func (c *HTTPClient) Submit(ctx context.Context, in SubmitInput) (string, error) {
	data, err := os.ReadFile(in.ImagePath) // #nosec G304 - path chosen by the operator
	if err != nil {
		return "", fmt.Errorf("%w: read image %s: %w", failure.ErrIO, in.ImagePath, err)
	}

	req := NewGenerationRequest(c.defaults, base64.StdEncoding.EncodeToString(data), in)
	if err := c.validate.Struct(req); err != nil {
		return "", fmt.Errorf("%w: invalid request: %w", failure.ErrSubmission, err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %w", failure.ErrSubmission, err)
	}

	c.logger.Info("submitting image-to-video job",
		slog.String("image", filepath.Base(in.ImagePath)),
		slog.Int("image_bytes", len(data)),
		slog.String("model", req.ModelName),
		slog.String("mode", string(req.Mode)),
		slog.Int("duration", req.Duration),
		slog.String("aspect_ratio", req.AspectRatio),
		slog.String("prompt", req.Prompt),
	)

	tok, err := c.minter.Mint(c.clock.Now())
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	status, respBody, err := c.doRequest(callCtx, http.MethodPost, c.baseURL+submitPath, tok, body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", failure.ErrSubmission, err)
	}

	if status != http.StatusOK {
		c.logger.Error("submission rejected",
			slog.Int("status", status),
			slog.String("body", string(respBody)),
		)
		return "", &failure.StatusError{
			Kind:       failure.ErrSubmission,
			Op:         "POST " + submitPath,
			StatusCode: status,
			Body:       string(respBody),
		}
	}

	var resp submitResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		c.logger.Error("submission response is not JSON",
			slog.String("body", string(respBody)),
		)
		return "", fmt.Errorf("%w: kling: unmarshal response: %w", failure.ErrSubmission, err)
	}

	if resp.Data.TaskID == "" {
		c.logger.Error("submission response has no task_id",
			slog.Int("code", resp.Code),
			slog.String("message", resp.Message),
			slog.String("body", string(respBody)),
		)
		return "", fmt.Errorf("%w: %s", ErrNoTaskIDReturned, string(respBody))
	}

	c.logger.Info("job submitted",
		slog.String("job_id", resp.Data.TaskID),
		slog.String("task_status", resp.Data.TaskStatus),
		slog.String("request_id", resp.RequestID),
	)

	return resp.Data.TaskID, nil
}

// doRequest performs a single authenticated request and returns the status code and body.
// Only transport failures are returned as errors; status interpretation is left to the caller.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, tok auth.Token, body []byte) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("kling: rate limiter: %w", err)
		}
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("kling: create request: %w", err)
	}

	req.Header.Set("Authorization", tok.BearerHeader())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("kling: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("kling: read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
