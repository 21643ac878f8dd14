package coordinator

import "time"

// Source is what triggered a cycle
type Source int

const (
	// SourceGeometry is the tracker reporting a moved window
	SourceGeometry Source = iota
	// SourceWallpaper is a change in the wallpaper directory
	SourceWallpaper
	// SourceManual is an explicit refresh request
	SourceManual
)

func (s Source) String() string {
	switch s {
	case SourceGeometry:
		return "geometry"
	case SourceWallpaper:
		return "wallpaper"
	case SourceManual:
		return "manual"
	default:
		return "unknown"
	}
}

// State of the coordinator
type State int32

const (
	Idle State = iota
	Updating
)

func (s State) String() string {
	if s == Updating {
		return "updating"
	}
	return "idle"
}

// Outcome is the result of one cycle. Only Updated wrote a file.
type Outcome int

const (
	Updated Outcome = iota
	// NoTarget: no process is tracked
	NoTarget
	// Unresolved: the config has no skin line
	Unresolved
	// DefaultSkin: the built-in skin cannot be customised
	DefaultSkin
	// ResolveFailed: the config could not be read
	ResolveFailed
	// BackupFailed: the original could not be preserved, nothing was written
	BackupFailed
	// NoGeometry: the window origin is unknown or its client area is empty
	NoGeometry
	CaptureFailed
	WriteFailed
	// Cancelled: the context ended during the debounce wait
	Cancelled
)

var outcomeNames = map[Outcome]string{
	Updated:       "updated",
	NoTarget:      "no-target",
	Unresolved:    "skin-unresolved",
	DefaultSkin:   "skin-default",
	ResolveFailed: "resolve-failed",
	BackupFailed:  "backup-failed",
	NoGeometry:    "no-geometry",
	CaptureFailed: "capture-failed",
	WriteFailed:   "write-failed",
	Cancelled:     "cancelled",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Status summarises the coordinator for the status API
type Status struct {
	State       string    `json:"state"`
	Runs        int       `json:"runs"`
	Updates     int       `json:"updates"`
	LastSource  string    `json:"last_source,omitempty"`
	LastOutcome string    `json:"last_outcome,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	LastRun     time.Time `json:"last_run,omitempty"`
}
