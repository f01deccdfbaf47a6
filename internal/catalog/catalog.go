// Package catalog lists source images and picks which ones to turn into clips.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/maauso/klingclip/internal/failure"
)

// Static errors for image selection.
var (
	// ErrNoImages is returned when the images directory holds no usable files.
	ErrNoImages = fmt.Errorf("%w: no images found", failure.ErrIO)
	// ErrInvalidSelection is returned when a selection does not fit the image list.
	ErrInvalidSelection = errors.New("invalid image selection")
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

var clipPattern = regexp.MustCompile(`^clip_(\d+)\.mp4$`)

// ListImages returns the png and jpeg files in dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read images directory: %w", failure.ErrIO, err)
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(images)
	return images, nil
}

// NextClipNumber returns one past the highest clip_NN.mp4 in names, or 1.
func NextClipNumber(names []string) int {
	highest := 0
	for _, name := range names {
		m := clipPattern.FindStringSubmatch(filepath.Base(name))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1
}

// NextClipNumberIn applies NextClipNumber to the files in dir.
// A missing directory means no clips yet.
func NextClipNumberIn(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read output directory: %w", failure.ErrIO, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return NextClipNumber(names), nil
}

// Selection picks images from a listing. Exactly one field must be set.
// Pick is 1-based.
type Selection struct {
	Pick  int
	First int
	All   bool
}

// Select applies sel to images.
func Select(images []string, sel Selection) ([]string, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	set := 0
	if sel.Pick != 0 {
		set++
	}
	if sel.First != 0 {
		set++
	}
	if sel.All {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: choose exactly one of pick, first or all", ErrInvalidSelection)
	}

	switch {
	case sel.All:
		return append([]string(nil), images...), nil
	case sel.Pick != 0:
		if sel.Pick < 1 || sel.Pick > len(images) {
			return nil, fmt.Errorf("%w: pick %d out of range 1-%d", ErrInvalidSelection, sel.Pick, len(images))
		}
		return []string{images[sel.Pick-1]}, nil
	default:
		if sel.First < 1 {
			return nil, fmt.Errorf("%w: first must be positive, got %d", ErrInvalidSelection, sel.First)
		}
		n := min(sel.First, len(images))
		return append([]string(nil), images[:n]...), nil
	}
}
