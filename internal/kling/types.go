// Package kling provides an HTTP client for the Kling image-to-video API:
// job submission, status route resolution and completion polling.
package kling

import (
	"fmt"
	"strings"

	"github.com/maauso/klingclip/internal/failure"
)

// Mode selects the generation quality tier.
type Mode string

// Generation modes accepted by the API.
const (
	ModeStandard Mode = "std"
	ModePro      Mode = "pro"
)

// ParseMode accepts "std", "standard" or "pro" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "std", "standard":
		return ModeStandard, nil
	case "pro", "professional":
		return ModePro, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", failure.ErrConfiguration, s)
	}
}

// Status is the client-side view of a remote job status.
type Status string

// Job statuses. Every remote sub-state that is neither a success nor a failure
// collapses into StatusProcessing.
const (
	StatusUnknown    Status = "unknown"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// ParseStatus maps a remote task_status value onto Status.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return StatusUnknown
	case "succeed", "succeeded":
		return StatusSucceeded
	case "failed":
		return StatusFailed
	default:
		return StatusProcessing
	}
}

// Defaults are the fixed request parameters not chosen per clip.
type Defaults struct {
	ModelName      string
	NegativePrompt string
	CFGScale       float64
}

// StandardDefaults returns the defaults used for every clip unless overridden.
func StandardDefaults() Defaults {
	return Defaults{
		ModelName:      "kling-v2-1",
		NegativePrompt: "blurry, low quality, distorted, artifacts",
		CFGScale:       0.5,
	}
}

// SubmitInput describes one image-to-video submission.
type SubmitInput struct {
	ImagePath       string
	Prompt          string
	Mode            Mode
	DurationSeconds int
	AspectRatio     string
}

// GenerationRequest is the JSON body of POST /v1/videos/image2video.
// Build it with NewGenerationRequest and treat it as read-only afterwards.
type GenerationRequest struct {
	ModelName      string  `json:"model_name" validate:"required"`
	Image          string  `json:"image" validate:"required"`
	Prompt         string  `json:"prompt" validate:"required,max=2500"`
	NegativePrompt string  `json:"negative_prompt,omitempty" validate:"max=2500"`
	CFGScale       float64 `json:"cfg_scale" validate:"gte=0,lte=1"`
	Mode           Mode    `json:"mode" validate:"oneof=std pro"`
	Duration       int     `json:"duration,string" validate:"oneof=5 10"`
	AspectRatio    string  `json:"aspect_ratio" validate:"oneof=16:9 9:16 1:1"`
}

// NewGenerationRequest combines the fixed defaults with the per-clip input.
func NewGenerationRequest(d Defaults, imageB64 string, in SubmitInput) GenerationRequest {
	return GenerationRequest{
		ModelName:      d.ModelName,
		Image:          imageB64,
		Prompt:         in.Prompt,
		NegativePrompt: d.NegativePrompt,
		CFGScale:       d.CFGScale,
		Mode:           in.Mode,
		Duration:       in.DurationSeconds,
		AspectRatio:    in.AspectRatio,
	}
}

// submitResponse is the envelope returned by the submission endpoint.
type submitResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Data      struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
	} `json:"data"`
}

// statusResponse is the envelope returned by a status route.
type statusResponse struct {
	Code      int        `json:"code"`
	Message   string     `json:"message"`
	RequestID string     `json:"request_id"`
	Data      statusData `json:"data"`
}

type statusData struct {
	TaskID        string     `json:"task_id"`
	TaskStatus    string     `json:"task_status"`
	TaskStatusMsg string     `json:"task_status_msg"`
	TaskResult    taskResult `json:"task_result"`
}

type taskResult struct {
	Videos []video `json:"videos"`
}

type video struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Duration string `json:"duration"`
}

// ArtifactRef points at a finished video. It only exists for succeeded jobs.
type ArtifactRef struct {
	JobID string
	URL   string
}
