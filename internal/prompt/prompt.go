// Package prompt holds the stylistic base prompt and the camera movement presets
// that are combined into the final generation prompt.
package prompt

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Base is appended to every prompt to keep the clip faithful to the source image.
const Base = "subtle realistic movement, preserve original image composition, natural cinematography, authentic lighting, cinematic realism, 4K detail, faithful to source image"

// DefaultMovement is used when no movement is requested.
const DefaultMovement = "static"

// ErrUnknownMovement is returned for a preset name that does not exist.
var ErrUnknownMovement = errors.New("prompt: unknown movement")

var movements = map[string]string{
	"static":         "static camera, gentle subtle movement, preserve composition, natural breathing effect",
	"zoom-in":        "slow subtle zoom in, gentle approach, reveal details, smooth natural movement",
	"zoom-out":       "slow subtle zoom out, gentle pullback, reveal context, smooth expansive view",
	"tilt-up":        "slow subtle tilt up, gentle vertical rise, reveal upper elements, natural upward flow",
	"tilt-down":      "slow subtle tilt down, gentle vertical descent, reveal lower elements, natural downward flow",
	"aerial-forward": "subtle aerial movement forward, gentle floating effect, smooth forward glide, natural aerial perspective",
	"aerial-rise":    "subtle aerial rise, gentle vertical lift, smooth elevation, natural ascending movement",
	"aerial-orbit":   "subtle orbital movement, gentle circular rotation, smooth panoramic reveal, natural rotating perspective",
}

// Merge joins a custom motion prompt with the base text.
// Custom text comes first; either side may be empty.
func Merge(custom, base string) string {
	custom = strings.TrimSpace(custom)
	base = strings.TrimSpace(base)
	switch {
	case custom == "":
		return base
	case base == "":
		return custom
	default:
		return custom + ", " + base
	}
}

// Movement returns the motion prompt for a named preset.
// An empty name selects DefaultMovement.
func Movement(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultMovement
	}
	text, ok := movements[name]
	if !ok {
		return "", fmt.Errorf("%w: %q (available: %s)", ErrUnknownMovement, name, strings.Join(Movements(), ", "))
	}
	return text, nil
}

// Movements lists the preset names in sorted order.
func Movements() []string {
	names := make([]string, 0, len(movements))
	for n := range movements {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
