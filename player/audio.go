package player

import "image"

// pullAudio is the audio device callback. It drains the audio ring into out
// and zero-fills whatever the ring cannot supply; it never waits for the
// fill worker. A slot shorter than what the device asks for is copied and
// the next slot continues the copy.
func (p *Player) pullAudio(out []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.session
	if s == nil || !s.audioValid || p.audio == nil {
		clear(out)
		return
	}

	n := 0
	for n < len(out) {
		slot, ok := p.audio.tryConsume()
		if !ok {
			break
		}

		a := &slot.Audio
		c := copy(out[n:], a.Data[a.read:a.Size])
		a.read += c
		n += c
		p.clock.audioSync = slot.PTS

		if a.read >= a.Size {
			// mark data as used; this also wakes the fill worker
			p.audio.markConsumed()
		}
	}

	if n < len(out) {
		clear(out[n:])
		p.stats.AudioUnderruns++
		p.audioCond.Signal()
	}
}

// NullDevice is an audio device that never pulls. A player created without a
// device uses it and ignores audio streams, so video runs on the wall clock.
type NullDevice struct{}

func (NullDevice) Open(AudioFormat, func([]byte)) error { return nil }
func (NullDevice) SetPaused(bool)                       {}
func (NullDevice) Close()                               {}

type nullSurface struct{}

func (nullSurface) DisplayOverlay(*Overlay, image.Rectangle) error { return nil }
func (nullSurface) Blit(*image.RGBA, image.Rectangle) error         { return nil }
func (nullSurface) Fill(image.Rectangle) error                      { return nil }
func (nullSurface) Redraw()                                         {}
