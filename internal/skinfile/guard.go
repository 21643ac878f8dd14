// Package skinfile protects and replaces the background image inside a skin directory.
package skinfile

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/smoogipooo/osu--Background-Overlay/internal/logger"
	"golang.org/x/image/bmp"
)

// ErrNoBackup is returned by Restore when the skin has never been backed up
var ErrNoBackup = errors.New("no backup present")

// Guard owns the background file of a skin directory: the one-time backup of
// the original and the replacement of the target file.
type Guard struct {
	name        string
	prefix      string
	jpegQuality int
}

// NewGuard creates a guard for the given target file name and backup prefix
func NewGuard(name, prefix string, jpegQuality int) *Guard {
	return &Guard{name: name, prefix: prefix, jpegQuality: jpegQuality}
}

// TargetPath returns the background file inside dir
func (g *Guard) TargetPath(dir string) string {
	return filepath.Join(dir, g.name)
}

// BackupPath returns the backup file inside dir
func (g *Guard) BackupPath(dir string) string {
	return filepath.Join(dir, g.prefix+g.name)
}

// EnsureBackup copies the target to the backup path if the target exists and
// no backup exists yet. It reports whether a copy was made.
func (g *Guard) EnsureBackup(dir string) (bool, error) {
	target := g.TargetPath(dir)
	backup := g.BackupPath(dir)

	if _, err := os.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat background: %w", err)
	}
	if _, err := os.Stat(backup); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat backup: %w", err)
	}

	if err := copyExclusive(target, backup); err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to back up %s: %w", target, err)
	}

	logger.WithComponent("skinfile").Debug().
		Str("backup", backup).
		Msg("Backed up original background")
	return true, nil
}

// copyExclusive copies src to a new file dst. dst must not exist.
func copyExclusive(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

// Replace encodes img into the target file of dir. The image is written to a
// temporary sibling first and renamed over the target, so readers never see a
// partially written file.
func (g *Guard) Replace(dir string, img image.Image) (err error) {
	tmp, err := os.CreateTemp(dir, "."+g.name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err = g.encode(tmp, img); err != nil {
		return fmt.Errorf("failed to encode background: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync background: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close background: %w", err)
	}
	if err = os.Rename(tmpName, g.TargetPath(dir)); err != nil {
		return fmt.Errorf("failed to replace background: %w", err)
	}
	return nil
}

// encode picks the encoder from the target file extension
func (g *Guard) encode(w io.Writer, img image.Image) error {
	switch strings.ToLower(filepath.Ext(g.name)) {
	case ".png":
		return png.Encode(w, img)
	case ".bmp":
		return bmp.Encode(w, img)
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: g.jpegQuality})
	}
}

// Restore copies the backup back over the target. The backup is kept.
func (g *Guard) Restore(dir string) error {
	backup := g.BackupPath(dir)
	if _, err := os.Stat(backup); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w in %s", ErrNoBackup, dir)
		}
		return err
	}

	in, err := os.Open(backup)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(dir, "."+g.name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, err = io.Copy(tmp, in)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpName, g.TargetPath(dir))
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to restore background: %w", err)
	}
	return nil
}
