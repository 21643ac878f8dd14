package skin

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

const (
	// SelectorKey is the config key naming the active skin
	SelectorKey = "Skin"
	// DefaultSkin is the value selecting the built-in, non-customisable skin
	DefaultSkin = "default"
)

var (
	// ErrConfigNotFound is returned when the per-user config file does not exist
	ErrConfigNotFound = errors.New("skin config file not found")
	// ErrInvalidSkin is returned when the selected skin would resolve outside the skins directory
	ErrInvalidSkin = errors.New("invalid skin name")
)

// State describes the outcome of a resolution
type State int

const (
	// Unresolved means the config has no skin selector line
	Unresolved State = iota
	// Default means the built-in skin is selected
	Default
	// Custom means a skin directory was resolved
	Custom
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Default:
		return "default"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

// Reference is the currently active skin
type Reference struct {
	State State  `json:"state"`
	Name  string `json:"name,omitempty"`
	Dir   string `json:"dir,omitempty"`
}

// Resolver resolves the active skin from the target's install directory.
// Nothing is cached; every call re-reads the config file.
type Resolver struct {
	SkinsDir string
}

// NewResolver creates a resolver for the given skins subdirectory name
func NewResolver(skinsDir string) *Resolver {
	return &Resolver{SkinsDir: skinsDir}
}

// ConfigPath returns the per-user config file of an installation
func ConfigPath(installDir, userName string) string {
	return filepath.Join(installDir, "osu!."+userName+".cfg")
}

// Resolve reads the per-user config and returns the active skin.
// A missing config file yields ErrConfigNotFound.
func (r *Resolver) Resolve(installDir, userName string) (Reference, error) {
	path := ConfigPath(installDir, userName)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Reference{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Reference{}, fmt.Errorf("failed to open skin config: %w", err)
	}
	defer f.Close()

	entries, err := ParseConfig(f)
	if err != nil {
		return Reference{}, fmt.Errorf("failed to read skin config %s: %w", path, err)
	}

	name, ok := entries.Lookup(SelectorKey)
	if !ok {
		return Reference{State: Unresolved}, nil
	}
	if name == DefaultSkin {
		return Reference{State: Default, Name: name}, nil
	}

	skinsRoot := filepath.Join(installDir, r.SkinsDir)
	dir := filepath.Join(skinsRoot, name)
	if rel, err := filepath.Rel(skinsRoot, dir); err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidSkin, name)
	}

	return Reference{State: Custom, Name: name, Dir: dir}, nil
}

// CurrentUser returns the OS user name as the target application spells it
// in its config file name, without any domain prefix.
func CurrentUser() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}
	return StripDomain(u.Username), nil
}

// StripDomain removes a `DOMAIN\` prefix from a user name
func StripDomain(name string) string {
	if i := strings.LastIndex(name, `\`); i >= 0 {
		return name[i+1:]
	}
	return name
}
