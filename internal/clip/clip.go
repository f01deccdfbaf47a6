// Package clip drives one source image through submission, polling and
// download, and tracks each attempt as a Clip aggregate for the batch summary.
package clip

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the local lifecycle state of a Clip.
type Status string

const (
	// StatusPending indicates the clip has not been submitted yet.
	StatusPending Status = "PENDING"
	// StatusSubmitted indicates the remote service accepted the job.
	StatusSubmitted Status = "SUBMITTED"
	// StatusDownloading indicates the job succeeded and the artifact is being fetched.
	StatusDownloading Status = "DOWNLOADING"
	// StatusCompleted indicates the artifact and its provenance are on disk.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates any stage failed.
	StatusFailed Status = "FAILED"
	// StatusTimedOut indicates the poll budget ran out before the job finished.
	StatusTimedOut Status = "TIMED_OUT"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusPending:     {StatusSubmitted, StatusFailed, StatusTimedOut},
	StatusSubmitted:   {StatusDownloading, StatusFailed, StatusTimedOut},
	StatusDownloading: {StatusCompleted, StatusFailed, StatusTimedOut},
	StatusCompleted:   {},
	StatusFailed:      {},
	StatusTimedOut:    {},
}

func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Clip is one generation attempt for one source image.
type Clip struct {
	mu sync.RWMutex

	// ID is the local identifier; the remote job ID is JobID.
	ID           string
	Number       int
	ImagePath    string
	MotionPrompt string
	// Prompt is the merged prompt actually sent.
	Prompt string
	JobID  string
	Status Status
	Error  string
	// ArtifactURL is kept so a failed download can be retried by hand.
	ArtifactURL    string
	VideoPath      string
	ProvenancePath string
	PublishedURL   string
	PublishError   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	SubmittedAt    time.Time
	CompletedAt    time.Time
}

// New creates a PENDING clip with a generated ID.
func New(number int, imagePath, motionPrompt string) *Clip {
	now := time.Now()
	return &Clip{
		ID:           uuid.NewString(),
		Number:       number,
		ImagePath:    imagePath,
		MotionPrompt: motionPrompt,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// transitionLocked changes the status or returns ErrInvalidTransition.
// The caller holds c.mu.
func (c *Clip) transitionLocked(status Status) error {
	if !canTransition(c.Status, status) {
		return ErrInvalidTransition
	}

	c.Status = status
	c.UpdatedAt = time.Now()

	switch status {
	case StatusSubmitted:
		c.SubmittedAt = c.UpdatedAt
	case StatusCompleted, StatusFailed, StatusTimedOut:
		c.CompletedAt = c.UpdatedAt
	}

	return nil
}

// Submitted records the remote job ID and moves the clip to SUBMITTED.
func (c *Clip) Submitted(prompt, jobID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transitionLocked(StatusSubmitted); err != nil {
		return err
	}
	c.Prompt = prompt
	c.JobID = jobID
	return nil
}

// Downloading records the artifact URL and moves the clip to DOWNLOADING.
func (c *Clip) Downloading(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transitionLocked(StatusDownloading); err != nil {
		return err
	}
	c.ArtifactURL = url
	return nil
}

// Complete records the local files and moves the clip to COMPLETED.
func (c *Clip) Complete(videoPath, provenancePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transitionLocked(StatusCompleted); err != nil {
		return err
	}
	c.VideoPath = videoPath
	c.ProvenancePath = provenancePath
	return nil
}

// Fail moves the clip to FAILED with an error message.
func (c *Clip) Fail(errMsg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transitionLocked(StatusFailed); err != nil {
		return err
	}
	c.Error = errMsg
	return nil
}

// Timeout moves the clip to TIMED_OUT with an error message.
func (c *Clip) Timeout(errMsg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transitionLocked(StatusTimedOut); err != nil {
		return err
	}
	c.Error = errMsg
	return nil
}

// SetPublished records the outcome of publishing to remote storage.
func (c *Clip) SetPublished(url, errMsg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PublishedURL = url
	c.PublishError = errMsg
	c.UpdatedAt = time.Now()
}

// GetStatus returns the current clip status (thread-safe).
func (c *Clip) GetStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Status
}

// Clone creates a copy of the clip for safe reads.
func (c *Clip) Clone() *Clip {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Clip{
		ID:             c.ID,
		Number:         c.Number,
		ImagePath:      c.ImagePath,
		MotionPrompt:   c.MotionPrompt,
		Prompt:         c.Prompt,
		JobID:          c.JobID,
		Status:         c.Status,
		Error:          c.Error,
		ArtifactURL:    c.ArtifactURL,
		VideoPath:      c.VideoPath,
		ProvenancePath: c.ProvenancePath,
		PublishedURL:   c.PublishedURL,
		PublishError:   c.PublishError,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		SubmittedAt:    c.SubmittedAt,
		CompletedAt:    c.CompletedAt,
	}
}
