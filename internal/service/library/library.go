// Package library lists and resolves the video files that can be played through a pipeline.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrInvalidName is returned for names that are not a plain file name.
var ErrInvalidName = errors.New("invalid video name")

// ErrNotFound is returned for names that do not exist in the library.
var ErrNotFound = errors.New("video not found")

var videoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".m4v":  true,
}

// Video is one playable file.
type Video struct {
	Name       string
	Size       int64
	ModifiedAt time.Time
}

// Library is rooted at a single directory; names never escape it.
type Library struct {
	dir string
}

// New returns a library over dir. The directory does not need to exist yet.
func New(dir string) *Library {
	return &Library{dir: dir}
}

// Dir returns the library root.
func (l *Library) Dir() string {
	return l.dir
}

// List returns playable files sorted by name. Hidden files and placeholders are skipped.
func (l *Library) List() ([]Video, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Video{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read video directory: %w", err)
	}

	videos := make([]Video, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !playable(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		videos = append(videos, Video{Name: e.Name(), Size: info.Size(), ModifiedAt: info.ModTime()})
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].Name < videos[j].Name })
	return videos, nil
}

// Resolve returns the path of a playable file called name.
func (l *Library) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !playable(name) {
		return "", fmt.Errorf("%w: %q is not a video file", ErrInvalidName, name)
	}

	path := filepath.Join(l.dir, name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return path, nil
}

func playable(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}
