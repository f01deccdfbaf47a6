package artifact

import (
	"context"
	"fmt"
	"strings"

	"github.com/maauso/klingclip/internal/storage"
)

// VideoName returns the artifact file name for a clip number.
func VideoName(clipNumber int) string {
	return fmt.Sprintf("clip_%02d.mp4", clipNumber)
}

// ProvenanceName returns the sidecar file name for a clip number.
func ProvenanceName(clipNumber int) string {
	return fmt.Sprintf("clip_%02d_config.txt", clipNumber)
}

// Provenance is the plain-text record written next to every clip.
// It is written once after a successful download and never changed.
type Provenance struct {
	ClipNumber      int
	SourceImage     string
	JobID           string
	Prompt          string
	Model           string
	Mode            string
	AspectRatio     string
	DurationSeconds int
	APIHost         string
}

// Render formats the record.
func (p Provenance) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Clip %02d\n", p.ClipNumber)
	b.WriteString(strings.Repeat("=", 70) + "\n\n")
	fmt.Fprintf(&b, "Image: %s\n", p.SourceImage)
	fmt.Fprintf(&b, "Task ID: %s\n", p.JobID)
	fmt.Fprintf(&b, "Prompt: %s\n\n", p.Prompt)
	b.WriteString("SETTINGS:\n")
	fmt.Fprintf(&b, "  - API: %s\n", p.APIHost)
	fmt.Fprintf(&b, "  - Model: %s\n", p.Model)
	fmt.Fprintf(&b, "  - Mode: %s\n", p.Mode)
	fmt.Fprintf(&b, "  - Aspect Ratio: %s\n", p.AspectRatio)
	fmt.Fprintf(&b, "  - Duration: %d seconds\n", p.DurationSeconds)
	return b.String()
}

// WriteProvenance saves the rendered record into store and returns its path.
func WriteProvenance(ctx context.Context, store storage.Storage, p Provenance) (string, error) {
	path, _, err := store.Save(ctx, ProvenanceName(p.ClipNumber), strings.NewReader(p.Render()))
	if err != nil {
		return "", fmt.Errorf("write provenance for clip %02d: %w", p.ClipNumber, err)
	}
	return path, nil
}
