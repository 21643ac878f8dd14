//go:build !windows

package wallpaper

// systemWallpaper has no portable source outside Windows; the wallpaper
// path must be configured.
func systemWallpaper() (string, error) {
	return "", ErrNoWallpaper
}
