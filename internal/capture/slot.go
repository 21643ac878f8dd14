package capture

import (
	"image"
	"sync"
)

// Slot owns the single live output image. Access goes through a Lease, which
// holds the slot exclusively until released.
type Slot struct {
	mu         sync.Mutex
	img        *image.RGBA
	generation uint64
}

// Lease is exclusive access to a Slot
type Lease struct {
	slot     *Slot
	released bool
}

// Acquire blocks until the slot is free and returns a lease on it
func (s *Slot) Acquire() *Lease {
	s.mu.Lock()
	return &Lease{slot: s}
}

// Current returns the image held by the slot, or nil
func (l *Lease) Current() *image.RGBA {
	return l.slot.img
}

// Discard drops the held image so its pixel buffer can be reclaimed before
// the next one is allocated.
func (l *Lease) Discard() {
	if l.slot.img != nil {
		l.slot.img.Pix = nil
		l.slot.img = nil
	}
}

// Store replaces the held image, discarding the previous one
func (l *Lease) Store(img *image.RGBA) {
	l.Discard()
	l.slot.img = img
	l.slot.generation++
}

// Generation returns how many images have been stored in the slot
func (l *Lease) Generation() uint64 {
	return l.slot.generation
}

// Release gives the slot up. Releasing twice is a no-op.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true
	l.slot.mu.Unlock()
}
