package kling

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/maauso/klingclip/internal/failure"
)

// ErrUnresolved is returned when no candidate route answered with 200.
var ErrUnresolved = fmt.Errorf("%w: kling: no status route resolved", failure.ErrPolling)

// Route is one candidate URL shape for the "get job status" operation.
// Pattern must contain the {id} placeholder.
type Route struct {
	Name    string
	Pattern string
}

// Path renders the route for a job ID.
func (r Route) Path(jobID string) string {
	return strings.ReplaceAll(r.Pattern, "{id}", url.PathEscape(jobID))
}

// DefaultRoutes returns the candidate status routes in priority order.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "image2video", Pattern: "/v1/videos/image2video/{id}"},
		{Name: "tasks", Pattern: "/v1/tasks/{id}"},
		{Name: "videos", Pattern: "/v1/videos/{id}"},
	}
}

// Resolution is a status payload together with the route that produced it.
type Resolution struct {
	Route Route
	Body  []byte
}

// Outcome records what happened when one candidate route was probed.
type Outcome struct {
	Route      Route
	StatusCode int   // 0 when the request never got a response
	Err        error // transport failure, if any
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %v", o.Route.Name, o.Err)
	}
	return fmt.Sprintf("%s: status %d", o.Route.Name, o.StatusCode)
}

// ResolveError lists every candidate that was tried and missed.
type ResolveError struct {
	JobID    string
	Outcomes []Outcome
}

func (e *ResolveError) Error() string {
	parts := make([]string, len(e.Outcomes))
	for i, o := range e.Outcomes {
		parts[i] = o.String()
	}
	return fmt.Sprintf("%v for job %s (%s)", ErrUnresolved, e.JobID, strings.Join(parts, "; "))
}

func (e *ResolveError) Unwrap() error {
	return ErrUnresolved
}

// Resolve probes the candidate routes in order with one fresh token.
// The first 200 wins. A 404 or a transport failure moves on to the next candidate.
// Any other status ends the probe with a *failure.StatusError of kind ErrPolling.
// When every candidate misses, the error is a *ResolveError.
//
// Nothing is remembered between calls: every call starts again from the first route.
func (c *HTTPClient) Resolve(ctx context.Context, jobID string) (Resolution, error) {
	if jobID == "" {
		return Resolution{}, ErrJobIDRequired
	}

	tok, err := c.minter.Mint(c.clock.Now())
	if err != nil {
		return Resolution{}, err
	}

	outcomes := make([]Outcome, 0, len(c.routes))
	for _, route := range c.routes {
		path := route.Path(jobID)

		callCtx, cancel := context.WithTimeout(ctx, c.statusTimeout)
		status, body, err := c.doRequest(callCtx, http.MethodGet, c.baseURL+path, tok, nil)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return Resolution{}, fmt.Errorf("kling: resolve %s: %w", jobID, ctx.Err())
			}
			c.logger.Debug("status route unreachable",
				slog.String("job_id", jobID),
				slog.String("route", route.Name),
				slog.String("error", err.Error()),
			)
			outcomes = append(outcomes, Outcome{Route: route, Err: err})
			continue
		}

		switch status {
		case http.StatusOK:
			c.logger.Debug("status route resolved",
				slog.String("job_id", jobID),
				slog.String("route", route.Name),
			)
			return Resolution{Route: route, Body: body}, nil
		case http.StatusNotFound:
			outcomes = append(outcomes, Outcome{Route: route, StatusCode: status})
			continue
		default:
			return Resolution{}, &failure.StatusError{
				Kind:       failure.ErrPolling,
				Op:         "GET " + path,
				StatusCode: status,
				Body:       string(body),
			}
		}
	}

	return Resolution{}, &ResolveError{JobID: jobID, Outcomes: outcomes}
}
