package player

import (
	"fmt"
	"image"
	"time"

	"github.com/njyeung/framesync/logging"
)

// presentLoop shows each video frame when the clock reaches its PTS and
// drops frames that are already late. It returns once s stops being the
// current session.
func (p *Player) presentLoop(s *session) error {
	log := logging.WithComponent(p.opts.Logger, "present")

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	for p.session == s {
		slot, ok := p.video.tryConsume()
		if !ok {
			p.stats.VideoUnderruns++
			p.videoCond.Signal()
			p.waitLocked(timer, p.opts.UnderrunBackoff)
			continue
		}

		due := slot.PTS
		now := p.syncLocked()

		if due >= now {
			wait := due - now
			if !p.playing && wait > 0 {
				// a paused clock does not move; sleep until a command arrives
				wait = -1
			}
			if !p.waitLocked(timer, wait) {
				continue
			}
			if p.session != s {
				break
			}
			// a resize swaps the slots; a still-early frame means the clock stalled
			if p.video.current() != slot || !slot.Filled() || due > p.syncLocked() {
				continue
			}
			p.presentLocked(slot)
		} else {
			p.stats.Skipped++
			log.Debug("skip frame", "pts", due, "late", now-due)
		}

		p.video.markConsumed()
	}

	log.Debug("presentation driver exiting", "path", s.path)
	return nil
}

// waitLocked releases p.mu until d has passed or the driver is woken. A
// negative d waits for a wake only. It reports whether the deadline passed.
func (p *Player) waitLocked(t *time.Timer, d time.Duration) bool {
	p.mu.Unlock()
	defer p.mu.Lock()

	if d < 0 {
		<-p.wake
		return false
	}

	deadline := time.Now().Add(d)
	t.Reset(d)
	select {
	case <-t.C:
	case <-p.wake:
		t.Stop()
	}
	return !time.Now().Before(deadline)
}

func (p *Player) presentLocked(slot *Slot) {
	dst := centerRect(p.areaLocked(), slot.Video.Bounds().Dx(), slot.Video.Bounds().Dy())

	switch v := slot.Video.(type) {
	case *Overlay:
		if err := p.opts.Surface.DisplayOverlay(v, dst); err != nil {
			p.log.Warn("display overlay", "error", err)
		}
	case *RawSurface:
		if p.shown == nil || p.shown.Rect != v.Img.Rect {
			p.shown = image.NewRGBA(v.Img.Rect)
		}
		copy(p.shown.Pix, v.Img.Pix)
		p.shownValid = true
		p.opts.Surface.Redraw()
	}

	p.stats.Presented++
	p.stats.LastPTS = slot.PTS
}

// SizeRequest returns the geometry the widget asks its parent for
func (p *Player) SizeRequest() (w, h int) {
	return p.opts.Width, p.opts.Height
}

// Flags returns the layout flags the player was created with
func (p *Player) Flags() Flags {
	return p.opts.Flags
}

// SizeAllocate records the area granted to the widget and rebuilds the frame
// buffers of a loaded stream to fit it
func (p *Player) SizeAllocate(area image.Rectangle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if area == p.area {
		return nil
	}
	p.area = area
	return p.resizeLocked()
}

// resizeLocked reallocates every video slot for the current allocation and
// refills the ring from the stream
func (p *Player) resizeLocked() error {
	s := p.session
	if s == nil || !s.videoValid || p.video == nil {
		return nil
	}

	area := p.areaLocked()
	srcW, srcH := s.stream.NativeSize()
	w, h := surfaceSize(area.Dx(), area.Dy(), srcW, srcH, p.opts.Flags.Has(FlagKeepRatio))
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrPresentationAlloc, w, h)
	}

	p.frameW, p.frameH = w, h
	for i := range p.video.slots {
		p.video.slots[i] = newVideoSlot(w, h, p.opts.Overlay)
	}
	p.video.cursor = 0
	if !p.opts.Overlay {
		p.shown = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	p.shownValid = false

	p.log.Debug("frame buffers resized", "w", w, "h", h, "slots", p.video.capacity())
	p.fillLocked(s, p.video, KindVideo, &s.videoFill, false)
	p.wakeDriver()
	return nil
}

// areaLocked returns the allocated area, or the requested size before any
// allocation
func (p *Player) areaLocked() image.Rectangle {
	if p.area.Empty() {
		return image.Rect(0, 0, p.opts.Width, p.opts.Height)
	}
	return p.area
}

// Draw repaints the widget: black bars around a smaller frame, then the last
// presented raw frame. Overlay frames are put on screen by the driver.
func (p *Player) Draw() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil || p.video == nil {
		return nil
	}

	area := p.areaLocked()
	dst := centerRect(area, p.frameW, p.frameH)
	if dst.Min != area.Min {
		if err := p.opts.Surface.Fill(area); err != nil {
			return fmt.Errorf("fill: %w", err)
		}
	}

	if p.opts.Overlay || !p.shownValid {
		return nil
	}
	if err := p.opts.Surface.Blit(p.shown, dst); err != nil {
		return fmt.Errorf("blit: %w", err)
	}
	return nil
}

// surfaceSize computes the frame buffer size for an area, rounded down to a
// multiple of four
func surfaceSize(areaW, areaH, srcW, srcH int, keepRatio bool) (int, int) {
	w, h := areaW, areaH
	if keepRatio && srcW > 0 && srcH > 0 {
		w, h = fitSize(srcW, srcH, areaW, areaH)
	}
	return floor4(w), floor4(h)
}

// fitSize computes aspect-correct dimensions to fit in the target area.
func fitSize(srcW, srcH, maxW, maxH int) (int, int) {
	if maxW == 0 || maxH == 0 {
		return srcW, srcH
	}

	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(maxW) / float64(maxH)

	if srcAspect > dstAspect {
		return maxW, int(float64(maxW) / srcAspect)
	}
	return int(float64(maxH) * srcAspect), maxH
}

func floor4(v int) int {
	return v &^ 3
}

// centerRect places a w x h rectangle in the middle of area
func centerRect(area image.Rectangle, w, h int) image.Rectangle {
	x := area.Min.X + (area.Dx()-w)/2
	y := area.Min.Y + (area.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}
