//go:build windows

package wallpaper

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// systemWallpaper reads HKEY_CURRENT_USER\Control Panel\Desktop\Wallpaper
func systemWallpaper() (string, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, `Control Panel\Desktop`, registry.QUERY_VALUE)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoWallpaper, err)
	}
	defer k.Close()

	path, _, err := k.GetStringValue("Wallpaper")
	if errors.Is(err, registry.ErrNotExist) {
		return "", ErrNoWallpaper
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoWallpaper, err)
	}
	return path, nil
}
