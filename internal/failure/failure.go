// Package failure defines the error kinds shared by every stage of a clip generation.
// Stage errors wrap one of the sentinel kinds so callers can classify them with errors.Is.
package failure

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	// ErrConfiguration is returned when credentials or settings are missing or invalid.
	ErrConfiguration = errors.New("configuration error")
	// ErrIO is returned when a local file cannot be read or written.
	ErrIO = errors.New("io error")
	// ErrSubmission is returned when a generation job could not be submitted.
	ErrSubmission = errors.New("submission error")
	// ErrPolling is returned when a job status could not be resolved or the job failed remotely.
	ErrPolling = errors.New("polling error")
	// ErrTimeout is returned when the polling budget is exhausted.
	ErrTimeout = errors.New("timeout error")
	// ErrDownload is returned when the finished artifact could not be retrieved.
	ErrDownload = errors.New("download error")
)

// StatusError carries an unexpected HTTP response from the remote service.
// It unwraps to its Kind so errors.Is(err, ErrSubmission) and friends keep working.
type StatusError struct {
	Kind       error
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %s: status %d: %s", e.Kind, e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return e.Kind
}

// Kind returns the sentinel kind of err, or nil if err does not wrap one.
func Kind(err error) error {
	for _, k := range []error{ErrConfiguration, ErrIO, ErrSubmission, ErrPolling, ErrTimeout, ErrDownload} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
