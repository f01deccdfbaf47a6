package kling

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/maauso/klingclip/internal/clock"
	"github.com/maauso/klingclip/internal/failure"
)

// Poll timing defaults.
const (
	DefaultPollInterval     = 10 * time.Second
	DefaultRegistrationWait = 30 * time.Second
	// ChecksPerMinute converts a wait budget in minutes into status checks.
	ChecksPerMinute = 6
)

// Static errors for polling.
var (
	// ErrJobFailed is returned when the remote service reports the job as failed.
	ErrJobFailed = fmt.Errorf("%w: kling: job failed", failure.ErrPolling)
	// ErrMalformedSuccess is returned when a succeeded job carries no video URL.
	ErrMalformedSuccess = fmt.Errorf("%w: kling: malformed success response", failure.ErrPolling)
	// ErrPollTimeout is returned when the status check budget runs out.
	ErrPollTimeout = fmt.Errorf("%w: kling: job did not finish in time", failure.ErrTimeout)
)

// StatusResolver returns the raw status payload for a job.
type StatusResolver interface {
	Resolve(ctx context.Context, jobID string) (Resolution, error)
}

// Poller waits for a submitted job to reach a terminal status.
type Poller struct {
	resolver         StatusResolver
	clock            clock.Clock
	interval         time.Duration
	registrationWait time.Duration
	logger           *slog.Logger
}

// PollerOption is a function that configures a Poller.
type PollerOption func(*Poller)

// WithPollClock sets the clock used for waiting.
func WithPollClock(clk clock.Clock) PollerOption {
	return func(p *Poller) {
		p.clock = clk
	}
}

// WithPollInterval sets the steady-state wait between status checks.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithRegistrationWait sets the one-off wait used when the very first check cannot resolve the job.
func WithRegistrationWait(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.registrationWait = d
		}
	}
}

// WithPollLogger sets the logger.
func WithPollLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPoller creates a Poller that reads job status through resolver.
func NewPoller(resolver StatusResolver, opts ...PollerOption) *Poller {
	p := &Poller{
		resolver:         resolver,
		clock:            clock.Real{},
		interval:         DefaultPollInterval,
		registrationWait: DefaultRegistrationWait,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// pollState is the bookkeeping for one WaitForCompletion call.
type pollState struct {
	attemptsUsed         int
	maxAttempts          int
	firstAttemptResolved bool
	registrationRetried  bool
}

// retryRegistration reports whether a failed resolution should be retried after
// the registration wait. That happens at most once, and only before any check
// has ever resolved.
func (s *pollState) retryRegistration() bool {
	if s.firstAttemptResolved || s.registrationRetried || s.attemptsUsed > 0 {
		return false
	}
	s.registrationRetried = true
	return true
}

func (s *pollState) exhausted() bool {
	return s.attemptsUsed >= s.maxAttempts
}

// WaitForCompletion polls jobID until it succeeds, fails or the budget of
// maxWaitMinutes*6 processing checks runs out. It returns the artifact URL on success.
//
// Errors: failure.ErrPolling for unresolvable status, explicit remote failure or
// a success without a video; failure.ErrTimeout when the budget is exhausted;
// the context error when ctx is cancelled.
func (p *Poller) WaitForCompletion(ctx context.Context, jobID string, maxWaitMinutes int) (ArtifactRef, error) {
	if jobID == "" {
		return ArtifactRef{}, ErrJobIDRequired
	}
	if maxWaitMinutes < 1 {
		return ArtifactRef{}, fmt.Errorf("%w: kling: max wait must be at least one minute, got %d", failure.ErrPolling, maxWaitMinutes)
	}

	st := &pollState{maxAttempts: maxWaitMinutes * ChecksPerMinute}
	logger := p.logger.With(slog.String("job_id", jobID))
	logger.Info("waiting for job",
		slog.Int("max_wait_minutes", maxWaitMinutes),
		slog.Int("max_checks", st.maxAttempts),
	)

	for !st.exhausted() {
		res, err := p.resolver.Resolve(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return ArtifactRef{}, fmt.Errorf("kling: wait for %s: %w", jobID, ctx.Err())
			}
			if st.retryRegistration() {
				logger.Info("job not resolvable yet, waiting for registration",
					slog.Duration("wait", p.registrationWait),
					slog.String("error", err.Error()),
				)
				if err := p.clock.Sleep(ctx, p.registrationWait); err != nil {
					return ArtifactRef{}, err
				}
				continue
			}
			logger.Error("status check failed", slog.String("error", err.Error()))
			return ArtifactRef{}, fmt.Errorf("kling: check status of %s: %w", jobID, err)
		}
		st.firstAttemptResolved = true

		var resp statusResponse
		if err := json.Unmarshal(res.Body, &resp); err != nil {
			logger.Error("status response is not JSON",
				slog.String("route", res.Route.Name),
				slog.String("body", string(res.Body)),
			)
			return ArtifactRef{}, fmt.Errorf("%w: kling: decode status for %s: %w", failure.ErrPolling, jobID, err)
		}

		status := ParseStatus(resp.Data.TaskStatus)
		switch status {
		case StatusSucceeded:
			videos := resp.Data.TaskResult.Videos
			if len(videos) == 0 || videos[0].URL == "" {
				logger.Error("succeeded job has no video URL", slog.String("body", string(res.Body)))
				return ArtifactRef{}, fmt.Errorf("%w: %s", ErrMalformedSuccess, string(res.Body))
			}
			logger.Info("job succeeded",
				slog.String("route", res.Route.Name),
				slog.Int("checks", st.attemptsUsed+1),
			)
			return ArtifactRef{JobID: jobID, URL: videos[0].URL}, nil

		case StatusFailed:
			logger.Error("job failed remotely",
				slog.String("reason", resp.Data.TaskStatusMsg),
				slog.String("body", string(res.Body)),
			)
			return ArtifactRef{}, fmt.Errorf("%w: %s: %s", ErrJobFailed, resp.Data.TaskStatusMsg, string(res.Body))
		}

		st.attemptsUsed++
		logger.Info("job still processing",
			slog.String("task_status", resp.Data.TaskStatus),
			slog.Int("code", resp.Code),
			slog.String("route", res.Route.Name),
			slog.Int("check", st.attemptsUsed),
			slog.Int("max_checks", st.maxAttempts),
		)

		if st.exhausted() {
			break
		}
		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return ArtifactRef{}, err
		}
	}

	logger.Error("timed out waiting for job", slog.Int("checks", st.attemptsUsed))
	return ArtifactRef{}, fmt.Errorf("%w after %d checks: %s", ErrPollTimeout, st.attemptsUsed, jobID)
}
