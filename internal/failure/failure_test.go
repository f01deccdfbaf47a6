package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusError_UnwrapsToKind(t *testing.T) {
	err := fmt.Errorf("submit clip 3: %w", &StatusError{
		Kind:       ErrSubmission,
		Op:         "POST /v1/videos/image2video",
		StatusCode: 400,
		Body:       `{"code":1201}`,
	})

	assert.ErrorIs(t, err, ErrSubmission)
	assert.NotErrorIs(t, err, ErrPolling)

	var se *StatusError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 400, se.StatusCode)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), `{"code":1201}`)
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"configuration", fmt.Errorf("%w: missing key", ErrConfiguration), ErrConfiguration},
		{"timeout", fmt.Errorf("wait: %w", ErrTimeout), ErrTimeout},
		{"status error", &StatusError{Kind: ErrDownload}, ErrDownload},
		{"unclassified", errors.New("boom"), nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}
