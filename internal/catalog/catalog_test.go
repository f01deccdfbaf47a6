package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/klingclip/internal/failure"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o600))
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.jpg", "a.png", "c.JPEG", "notes.txt", "d.gif")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o750))

	images, err := ListImages(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.jpg"),
		filepath.Join(dir, "c.JPEG"),
	}, images)
}

func TestListImages_MissingDir(t *testing.T) {
	_, err := ListImages(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, failure.ErrIO)
}

func TestNextClipNumber(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  int
	}{
		{"empty", nil, 1},
		{"no clips", []string{"readme.txt"}, 1},
		{"highest plus one", []string{"clip_01.mp4", "clip_07.mp4", "clip_03.mp4"}, 8},
		{"ignores sidecars", []string{"clip_02.mp4", "clip_09_config.txt"}, 3},
		{"three digits", []string{"clip_99.mp4", "clip_100.mp4"}, 101},
		{"ignores malformed", []string{"clip_x.mp4", "clip_.mp4", "myclip_05.mp4"}, 1},
		{"full paths", []string{"outputs/clip_04.mp4"}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextClipNumber(tt.names))
		})
	}
}

func TestNextClipNumberIn(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "clip_05.mp4", "clip_05_config.txt")

	n, err := NextClipNumberIn(dir)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = NextClipNumberIn(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSelect(t *testing.T) {
	images := []string{"a.png", "b.png", "c.png"}

	tests := []struct {
		name    string
		sel     Selection
		want    []string
		wantErr error
	}{
		{"all", Selection{All: true}, images, nil},
		{"pick second", Selection{Pick: 2}, []string{"b.png"}, nil},
		{"first two", Selection{First: 2}, []string{"a.png", "b.png"}, nil},
		{"first more than available", Selection{First: 10}, images, nil},
		{"pick out of range", Selection{Pick: 4}, nil, ErrInvalidSelection},
		{"pick negative", Selection{Pick: -1}, nil, ErrInvalidSelection},
		{"first negative", Selection{First: -2}, nil, ErrInvalidSelection},
		{"nothing chosen", Selection{}, nil, ErrInvalidSelection},
		{"two modes", Selection{Pick: 1, All: true}, nil, ErrInvalidSelection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(images, tt.sel)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect_NoImages(t *testing.T) {
	_, err := Select(nil, Selection{All: true})
	assert.ErrorIs(t, err, ErrNoImages)
	assert.ErrorIs(t, err, failure.ErrIO)
}
