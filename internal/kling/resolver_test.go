package kling

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/klingclip/internal/failure"
)

// routeServer answers each status route with a fixed status code and records the hit order.
type routeServer struct {
	mu     sync.Mutex
	hits   []string
	codes  map[string]int
	bodies map[string]string
}

func (s *routeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits = append(s.hits, r.URL.Path)
	code, ok := s.codes[r.URL.Path]
	body := s.bodies[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		code = http.StatusNotFound
	}
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func (s *routeServer) Hits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.hits...)
}

func TestRoute_Path(t *testing.T) {
	r := Route{Name: "tasks", Pattern: "/v1/tasks/{id}"}
	assert.Equal(t, "/v1/tasks/job-123", r.Path("job-123"))
	assert.Equal(t, "/v1/tasks/a%2Fb", r.Path("a/b"))
}

func TestResolve_ProbesInOrderEveryTick(t *testing.T) {
	rs := &routeServer{
		codes:  map[string]int{"/v1/videos/job-123": http.StatusOK},
		bodies: map[string]string{"/v1/videos/job-123": `{"data":{"task_status":"processing"}}`},
	}
	server := httptest.NewServer(rs)
	defer server.Close()

	c := newTestClient(t, server.URL)

	for i := 0; i < 2; i++ {
		res, err := c.Resolve(context.Background(), "job-123")
		require.NoError(t, err)
		assert.Equal(t, "videos", res.Route.Name)
		assert.JSONEq(t, `{"data":{"task_status":"processing"}}`, string(res.Body))
	}

	want := []string{
		"/v1/videos/image2video/job-123", "/v1/tasks/job-123", "/v1/videos/job-123",
		"/v1/videos/image2video/job-123", "/v1/tasks/job-123", "/v1/videos/job-123",
	}
	assert.Equal(t, want, rs.Hits())
}

func TestResolve_FirstMatchStops(t *testing.T) {
	rs := &routeServer{
		codes: map[string]int{
			"/v1/videos/image2video/job-1": http.StatusOK,
			"/v1/tasks/job-1":              http.StatusOK,
		},
	}
	server := httptest.NewServer(rs)
	defer server.Close()

	c := newTestClient(t, server.URL)

	res, err := c.Resolve(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "image2video", res.Route.Name)
	assert.Equal(t, []string{"/v1/videos/image2video/job-1"}, rs.Hits())
}

func TestResolve_OtherStatusAbortsTick(t *testing.T) {
	rs := &routeServer{
		codes: map[string]int{
			"/v1/videos/image2video/job-1": http.StatusUnauthorized,
			"/v1/tasks/job-1":              http.StatusOK,
		},
		bodies: map[string]string{"/v1/videos/image2video/job-1": `{"code":1004,"message":"token expired"}`},
	}
	server := httptest.NewServer(rs)
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.Resolve(context.Background(), "job-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrPolling)
	assert.NotErrorIs(t, err, ErrUnresolved)

	var se *failure.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Contains(t, se.Body, "token expired")
	assert.Len(t, rs.Hits(), 1)
}

func TestResolve_AllMiss(t *testing.T) {
	rs := &routeServer{}
	server := httptest.NewServer(rs)
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.Resolve(context.Background(), "job-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.ErrorIs(t, err, failure.ErrPolling)

	var re *ResolveError
	require.True(t, errors.As(err, &re))
	require.Len(t, re.Outcomes, 3)
	for _, o := range re.Outcomes {
		assert.Equal(t, http.StatusNotFound, o.StatusCode)
	}
	assert.Contains(t, err.Error(), "tasks: status 404")
}

// roundTripFunc lets a test fail individual requests at the transport level.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestResolve_TransportFailureTriesNext(t *testing.T) {
	rs := &routeServer{codes: map[string]int{"/v1/tasks/job-1": http.StatusOK}}
	server := httptest.NewServer(rs)
	defer server.Close()

	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/v1/videos/image2video/job-1" {
			return nil, errors.New("connection reset")
		}
		return http.DefaultTransport.RoundTrip(r)
	})

	c := newTestClient(t, server.URL, WithHTTPClient(&http.Client{Transport: transport}))

	res, err := c.Resolve(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "tasks", res.Route.Name)
}

func TestResolve_TransportFailuresAreListed(t *testing.T) {
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("no route to host")
	})

	c := newTestClient(t, "http://kling.invalid", WithHTTPClient(&http.Client{Transport: transport}))

	_, err := c.Resolve(context.Background(), "job-1")
	var re *ResolveError
	require.True(t, errors.As(err, &re))
	require.Len(t, re.Outcomes, 3)
	assert.Error(t, re.Outcomes[0].Err)
	assert.Zero(t, re.Outcomes[0].StatusCode)
}

func TestResolve_CancelledContext(t *testing.T) {
	rs := &routeServer{}
	server := httptest.NewServer(rs)
	defer server.Close()

	c := newTestClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Resolve(ctx, "job-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_EmptyJobID(t *testing.T) {
	c := newTestClient(t, "http://kling.invalid")
	_, err := c.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrJobIDRequired)
}
