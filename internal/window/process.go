package window

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// Finder lists running processes with a given name, in enumeration order
type Finder interface {
	Find(ctx context.Context, name string) ([]Process, error)
}

// ProcessFinder looks processes up through gopsutil
type ProcessFinder struct{}

// NewProcessFinder creates a new process finder
func NewProcessFinder() *ProcessFinder {
	return &ProcessFinder{}
}

// Find returns every process whose name matches name
func (f *ProcessFinder) Find(ctx context.Context, name string) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var found []Process
	for _, p := range procs {
		pname, err := p.NameWithContext(ctx)
		if err != nil || !MatchName(pname, name) {
			continue
		}
		// Exe can be unreadable for processes owned by other users
		exe, _ := p.ExeWithContext(ctx)
		if exe != "" && !MatchName(filepath.Base(exe), name) {
			// Under Wine the executable is the loader; the program is named on the command line
			cmdline, _ := p.CmdlineSliceWithContext(ctx)
			environ, _ := p.EnvironWithContext(ctx)
			if hosted, ok := HostedExePath(cmdline, environ, name); ok {
				exe = hosted
			}
		}
		found = append(found, Process{PID: p.Pid, Name: pname, Exe: exe})
	}
	return found, nil
}

// HostedExePath finds the program run by a loader such as Wine. It picks the
// first command line argument whose base name matches name and maps Windows
// drive paths through the prefix's dosdevices links. The prefix comes from
// WINEPREFIX in environ, or ~/.wine.
func HostedExePath(cmdline, environ []string, name string) (string, bool) {
	for _, arg := range cmdline {
		base := arg
		if i := strings.LastIndexAny(arg, `\/`); i >= 0 {
			base = arg[i+1:]
		}
		if !MatchName(base, name) {
			continue
		}

		if filepath.IsAbs(arg) {
			return filepath.Clean(arg), true
		}
		if len(arg) < 3 || arg[1] != ':' || (arg[2] != '\\' && arg[2] != '/') {
			continue
		}
		prefix := winePrefix(environ)
		if prefix == "" {
			return "", false
		}
		drive := strings.ToLower(arg[:2])
		rest := strings.ReplaceAll(arg[3:], `\`, "/")
		return filepath.Join(prefix, "dosdevices", drive, filepath.FromSlash(rest)), true
	}
	return "", false
}

func winePrefix(environ []string) string {
	var home string
	for _, kv := range environ {
		key, value, _ := strings.Cut(kv, "=")
		switch key {
		case "WINEPREFIX":
			if value != "" {
				return value
			}
		case "HOME":
			home = value
		}
	}
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".wine")
}

// MatchName compares process names case-insensitively, ignoring a trailing
// ".exe" on either side.
func MatchName(processName, want string) bool {
	return strings.EqualFold(trimExe(processName), trimExe(want))
}

func trimExe(name string) string {
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".exe") {
		return name[:len(name)-len(ext)]
	}
	return name
}
