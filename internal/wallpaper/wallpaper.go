// Package wallpaper finds the desktop wallpaper file and watches it for changes.
package wallpaper

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrNoWallpaper is returned when the wallpaper location cannot be determined
var ErrNoWallpaper = errors.New("failed to determine the operating system wallpaper")

// Locate returns the wallpaper file path. A non-empty override wins over the
// platform lookup.
func Locate(override string) (string, error) {
	if override != "" {
		return normalize(override), nil
	}

	path, err := systemWallpaper()
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", ErrNoWallpaper
	}
	return normalize(path), nil
}

func normalize(path string) string {
	path = os.ExpandEnv(path)
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
