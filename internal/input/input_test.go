package input

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/smoogipooo/osu--Background-Overlay/internal/window"
)

type fakeKeyboard struct {
	foreground window.Handle
	events     []string
	keyErr     error
}

func (k *fakeKeyboard) Foreground() window.Handle { return k.foreground }

func (k *fakeKeyboard) SetForeground(h window.Handle) bool {
	k.events = append(k.events, fmt.Sprintf("focus:%d", h))
	k.foreground = h
	return true
}

func (k *fakeKeyboard) SendKeys(codes []uint16, up bool) error {
	dir := "down"
	if up {
		dir = "up"
	}
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprintf("%#x", c)
	}
	k.events = append(k.events, dir+":"+strings.Join(parts, ","))
	return k.keyErr
}

func (k *fakeKeyboard) Close() error { return nil }

func newTestInjector(kb Keyboard, events *[]string) *Injector {
	inj := NewInjector(kb, 100*time.Millisecond, 50*time.Millisecond)
	inj.sleep = func(ctx context.Context, d time.Duration) {
		*events = append(*events, "sleep:"+d.String())
	}
	return inj
}

func TestNotifySequence(t *testing.T) {
	kb := &fakeKeyboard{foreground: 3}
	inj := newTestInjector(kb, &kb.events)

	inj.Notify(context.Background(), 7)

	want := []string{
		"focus:7",
		"sleep:100ms",
		"down:0x38,0x1d,0x2a,0x1f",
		"sleep:50ms",
		"up:0x38,0x1d,0x2a,0x1f",
		"focus:3",
	}
	if got := strings.Join(kb.events, " "); got != strings.Join(want, " ") {
		t.Errorf("events:\n got %s\nwant %s", got, strings.Join(want, " "))
	}
	if kb.foreground != 3 {
		t.Errorf("foreground = %d, want previous window 3 restored", kb.foreground)
	}
}

func TestNotifyReleasesAfterFailedPress(t *testing.T) {
	kb := &fakeKeyboard{foreground: 3, keyErr: errors.New("blocked")}
	inj := newTestInjector(kb, &kb.events)

	inj.Notify(context.Background(), 7)

	var sawUp bool
	for _, e := range kb.events {
		if strings.HasPrefix(e, "up:") {
			sawUp = true
		}
	}
	if !sawUp {
		t.Errorf("key up should always be sent, events %v", kb.events)
	}
}

func TestNotifyWithoutPreviousForeground(t *testing.T) {
	kb := &fakeKeyboard{}
	inj := newTestInjector(kb, &kb.events)

	inj.Notify(context.Background(), 7)

	if last := kb.events[len(kb.events)-1]; last != "up:0x38,0x1d,0x2a,0x1f" {
		t.Errorf("no focus restore expected without a previous window, last event %q", last)
	}
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	sleepContext(ctx, time.Minute)
	if time.Since(start) > time.Second {
		t.Error("sleep should return as soon as the context is done")
	}
}
