package kling

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/klingclip/internal/failure"
)

// scriptedResolver replays a fixed sequence of resolve results; the last entry repeats.
type scriptedResolver struct {
	steps []step
	calls int
}

type step struct {
	body string
	err  error
}

func (s *scriptedResolver) Resolve(ctx context.Context, jobID string) (Resolution, error) {
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	st := s.steps[i]
	if st.err != nil {
		return Resolution{}, st.err
	}
	return Resolution{Route: Route{Name: "videos"}, Body: []byte(st.body)}, nil
}

const (
	processingBody = `{"code":0,"data":{"task_id":"job-1","task_status":"processing"}}`
	succeededBody  = `{"code":0,"data":{"task_id":"job-1","task_status":"succeed","task_result":{"videos":[{"id":"v1","url":"https://cdn.example.com/v1.mp4","duration":"10"}]}}}`
)

var errMiss = &ResolveError{JobID: "job-1"}

func newTestPoller(r StatusResolver) (*Poller, *fakeClock) {
	clk := newFakeClock()
	return NewPoller(r, WithPollClock(clk)), clk
}

func TestWaitForCompletion(t *testing.T) {
	tests := []struct {
		name       string
		steps      []step
		maxWait    int
		wantURL    string
		wantErr    error
		wantCalls  int
		wantSleeps []time.Duration
	}{
		{
			name:      "succeeds on first check",
			steps:     []step{{body: succeededBody}},
			maxWait:   15,
			wantURL:   "https://cdn.example.com/v1.mp4",
			wantCalls: 1,
		},
		{
			name:       "processing then succeeded",
			steps:      []step{{body: processingBody}, {body: processingBody}, {body: succeededBody}},
			maxWait:    15,
			wantURL:    "https://cdn.example.com/v1.mp4",
			wantCalls:  3,
			wantSleeps: []time.Duration{10 * time.Second, 10 * time.Second},
		},
		{
			name:       "accepts succeeded spelling",
			steps:      []step{{body: `{"data":{"task_status":"succeeded","task_result":{"videos":[{"url":"https://x/y.mp4"}]}}}`}},
			maxWait:    1,
			wantURL:    "https://x/y.mp4",
			wantCalls:  1,
			wantSleeps: nil,
		},
		{
			name:      "succeeded without videos",
			steps:     []step{{body: `{"data":{"task_status":"succeed","task_result":{"videos":[]}}}`}},
			maxWait:   15,
			wantErr:   ErrMalformedSuccess,
			wantCalls: 1,
		},
		{
			name:      "remote failure",
			steps:     []step{{body: `{"data":{"task_status":"failed","task_status_msg":"content policy"}}`}},
			maxWait:   15,
			wantErr:   ErrJobFailed,
			wantCalls: 1,
		},
		{
			name:      "status body not JSON",
			steps:     []step{{body: `<html>`}},
			maxWait:   15,
			wantErr:   failure.ErrPolling,
			wantCalls: 1,
		},
		{
			name:       "registration wait then success",
			steps:      []step{{err: errMiss}, {body: succeededBody}},
			maxWait:    15,
			wantURL:    "https://cdn.example.com/v1.mp4",
			wantCalls:  2,
			wantSleeps: []time.Duration{30 * time.Second},
		},
		{
			name:       "registration retried only once",
			steps:      []step{{err: errMiss}, {err: errMiss}},
			maxWait:    15,
			wantErr:    ErrUnresolved,
			wantCalls:  2,
			wantSleeps: []time.Duration{30 * time.Second},
		},
		{
			name:       "later miss fails immediately",
			steps:      []step{{body: processingBody}, {err: errMiss}},
			maxWait:    15,
			wantErr:    failure.ErrPolling,
			wantCalls:  2,
			wantSleeps: []time.Duration{10 * time.Second},
		},
		{
			name:      "budget of one minute is six checks",
			steps:     []step{{body: processingBody}},
			maxWait:   1,
			wantErr:   failure.ErrTimeout,
			wantCalls: 6,
			wantSleeps: []time.Duration{
				10 * time.Second, 10 * time.Second, 10 * time.Second, 10 * time.Second, 10 * time.Second,
			},
		},
		{
			name:      "registration wait does not use the budget",
			steps:     []step{{err: errMiss}, {body: processingBody}},
			maxWait:   1,
			wantErr:   ErrPollTimeout,
			wantCalls: 7,
			wantSleeps: []time.Duration{
				30 * time.Second,
				10 * time.Second, 10 * time.Second, 10 * time.Second, 10 * time.Second, 10 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &scriptedResolver{steps: tt.steps}
			p, clk := newTestPoller(r)

			ref, err := p.WaitForCompletion(context.Background(), "job-1", tt.maxWait)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, ref.URL)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantURL, ref.URL)
				assert.Equal(t, "job-1", ref.JobID)
			}
			assert.Equal(t, tt.wantCalls, r.calls)
			assert.Equal(t, tt.wantSleeps, clk.Sleeps())
		})
	}
}

func TestWaitForCompletion_InvalidArguments(t *testing.T) {
	p, _ := newTestPoller(&scriptedResolver{steps: []step{{body: succeededBody}}})

	_, err := p.WaitForCompletion(context.Background(), "", 15)
	assert.ErrorIs(t, err, ErrJobIDRequired)

	_, err = p.WaitForCompletion(context.Background(), "job-1", 0)
	assert.ErrorIs(t, err, failure.ErrPolling)
}

func TestWaitForCompletion_ContextCancelled(t *testing.T) {
	r := &scriptedResolver{steps: []step{{body: processingBody}}}
	p, _ := newTestPoller(r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.WaitForCompletion(ctx, "job-1", 15)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, r.calls)
}

func TestWaitForCompletion_CustomTiming(t *testing.T) {
	r := &scriptedResolver{steps: []step{{err: errMiss}, {body: processingBody}, {body: succeededBody}}}
	clk := newFakeClock()
	p := NewPoller(r,
		WithPollClock(clk),
		WithPollInterval(2*time.Second),
		WithRegistrationWait(5*time.Second),
	)

	_, err := p.WaitForCompletion(context.Background(), "job-1", 1)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second, 2 * time.Second}, clk.Sleeps())
}

func TestWaitForCompletion_OverHTTP(t *testing.T) {
	rs := &routeServer{
		codes:  map[string]int{"/v1/videos/job-123": http.StatusOK},
		bodies: map[string]string{"/v1/videos/job-123": `{"data":{"task_status":"succeed","task_result":{"videos":[{"url":"https://cdn.example.com/c.mp4"}]}}}`},
	}
	server := httptest.NewServer(rs)
	defer server.Close()

	c := newTestClient(t, server.URL)
	p, _ := newTestPoller(c)

	ref, err := p.WaitForCompletion(context.Background(), "job-123", 15)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/c.mp4", ref.URL)
	assert.Equal(t, []string{
		"/v1/videos/image2video/job-123", "/v1/tasks/job-123", "/v1/videos/job-123",
	}, rs.Hits())
}
