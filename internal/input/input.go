// Package input sends the skin reload shortcut to the target window.
package input

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/smoogipooo/osu--Background-Overlay/internal/logger"
	"github.com/smoogipooo/osu--Background-Overlay/internal/window"
)

// ReloadSequence is the set of scan codes the target maps to "reload skin":
// left Alt, left Ctrl, left Shift, S.
var ReloadSequence = []uint16{0x38, 0x1D, 0x2A, 0x1F}

// Keyboard is the platform input surface
type Keyboard interface {
	// Foreground returns the window that currently has focus
	Foreground() window.Handle

	// SetForeground brings h to the foreground
	SetForeground(h window.Handle) bool

	// SendKeys presses (or releases, when up is set) every scan code at once
	SendKeys(codes []uint16, up bool) error

	Close() error
}

// Injector runs the reload sequence against a window
type Injector struct {
	kb          Keyboard
	focusSettle time.Duration
	keySettle   time.Duration
	log         *zerolog.Logger

	sleep func(ctx context.Context, d time.Duration)
}

// NewInjector creates an injector. focusSettle is waited after foregrounding
// the target, keySettle between key down and key up.
func NewInjector(kb Keyboard, focusSettle, keySettle time.Duration) *Injector {
	return &Injector{
		kb:          kb,
		focusSettle: focusSettle,
		keySettle:   keySettle,
		log:         logger.WithComponent("input"),
		sleep:       sleepContext,
	}
}

// Notify focuses target, presses and releases the reload sequence, then
// gives focus back to whatever had it before. The target gives no
// acknowledgement, so failures are only logged.
func (i *Injector) Notify(ctx context.Context, target window.Handle) {
	previous := i.kb.Foreground()

	if !i.kb.SetForeground(target) {
		i.log.Debug().Uint64("window", uint64(target)).Msg("SetForeground refused")
	}
	i.sleep(ctx, i.focusSettle)

	if err := i.kb.SendKeys(ReloadSequence, false); err != nil {
		i.log.Debug().Err(err).Msg("Key down failed")
	}
	i.sleep(ctx, i.keySettle)

	// Released even if the press failed so no key is left held down
	if err := i.kb.SendKeys(ReloadSequence, true); err != nil {
		i.log.Debug().Err(err).Msg("Key up failed")
	}

	if previous != 0 {
		i.kb.SetForeground(previous)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
