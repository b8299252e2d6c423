package player

import (
	"image"
	"iter"
	"sync"
	"time"
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotFilled
)

// VideoPayload is the presentable image held by a video slot. It is either an
// *Overlay or a *RawSurface.
type VideoPayload interface {
	Bounds() image.Rectangle
	isVideoPayload()
}

// Overlay is a YCbCr 4:2:0 frame displayed directly by the presentation driver
type Overlay struct {
	Img *image.YCbCr
}

func (o *Overlay) Bounds() image.Rectangle { return o.Img.Rect }
func (*Overlay) isVideoPayload()           {}

// RawSurface is an RGBA frame copied into the widget and drawn on redraw
type RawSurface struct {
	Img *image.RGBA
}

func (r *RawSurface) Bounds() image.Rectangle { return r.Img.Rect }
func (*RawSurface) isVideoPayload()           {}

// AudioPayload is one device frame of interleaved s16le PCM
type AudioPayload struct {
	Data []byte // fixed capacity, reused
	Size int    // valid bytes, 0 when empty
	read int    // bytes already drained by the pull callback
}

// Slot is a single decoded unit owned by a ring
type Slot struct {
	Kind  Kind
	PTS   time.Duration
	Audio AudioPayload
	Video VideoPayload

	state slotState
}

// Filled reports whether the slot holds an unconsumed frame
func (s *Slot) Filled() bool {
	return s.state == slotFilled
}

func (s *Slot) markFilled() {
	s.state = slotFilled
}

func (s *Slot) reset() {
	s.state = slotEmpty
	s.Audio.Size = 0
	s.Audio.read = 0
}

func newAudioSlot(frameBytes int) *Slot {
	return &Slot{
		Kind:  KindAudio,
		Audio: AudioPayload{Data: make([]byte, frameBytes)},
	}
}

func newVideoSlot(w, h int, overlay bool) *Slot {
	rect := image.Rect(0, 0, w, h)
	s := &Slot{Kind: KindVideo}
	if overlay {
		s.Video = &Overlay{Img: image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)}
	} else {
		s.Video = &RawSurface{Img: image.NewRGBA(rect)}
	}
	return s
}

// ring is a fixed-capacity circular buffer of slots shared by one fill
// worker and one consumer. All methods require the player mutex.
type ring struct {
	slots  []*Slot
	cursor int
	cond   *sync.Cond
}

func newRing(capacity int, cond *sync.Cond) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{
		slots: make([]*Slot, capacity),
		cond:  cond,
	}
}

func (r *ring) capacity() int {
	return len(r.slots)
}

func (r *ring) next(i int) int {
	return (i + 1) % len(r.slots)
}

// last returns the slot just before i, wrapping
func (r *ring) last(i int) int {
	if i > 0 {
		return i - 1
	}
	return len(r.slots) - 1
}

// current returns the slot under the read cursor, filled or not
func (r *ring) current() *Slot {
	return r.slots[r.cursor]
}

// tryConsume returns the slot under the read cursor if it is filled
func (r *ring) tryConsume() (*Slot, bool) {
	s := r.slots[r.cursor]
	if s == nil || !s.Filled() {
		return nil, false
	}
	return s, true
}

// markConsumed empties the slot under the cursor, advances the cursor and
// wakes the fill worker
func (r *ring) markConsumed() {
	r.slots[r.cursor].reset()
	r.cursor = r.next(r.cursor)
	r.cond.Signal()
}

// fillEligible yields the slots a fill worker may consider, in ring order:
// from the cursor up to but excluding the slot before the cursor. A single
// slot ring is filled in place.
func (r *ring) fillEligible() iter.Seq[int] {
	return func(yield func(int) bool) {
		if len(r.slots) == 1 {
			if r.slots[0] != nil {
				yield(0)
			}
			return
		}

		end := r.last(r.cursor)
		for i := r.cursor; i != end; i = r.next(i) {
			// slots are nil until the ring is sized
			if r.slots[i] == nil {
				return
			}
			if !yield(i) {
				return
			}
		}
	}
}

// nextFillable returns the first empty eligible slot. Filled slots form a
// run starting at the cursor, so this is always the frame that comes next.
func (r *ring) nextFillable() (int, bool) {
	for i := range r.fillEligible() {
		if !r.slots[i].Filled() {
			return i, true
		}
	}
	return 0, false
}

// filled counts slots holding a frame
func (r *ring) filled() int {
	n := 0
	for _, s := range r.slots {
		if s != nil && s.Filled() {
			n++
		}
	}
	return n
}
