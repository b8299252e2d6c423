package player

import "time"

// clock derives the sync point video frames are timed against. It is
// guarded by the player mutex.
type clock struct {
	// audioSync is the PTS last drained by the audio pull callback
	audioSync time.Duration

	// fallback wall clock, used only without a valid audio stream
	offset    time.Duration
	resumedAt time.Time
	running   bool

	now func() time.Time
}

func newClock() clock {
	return clock{now: time.Now}
}

// reset rewinds the clock for a newly loaded stream
func (c *clock) reset() {
	c.audioSync = 0
	c.offset = 0
	c.running = false
}

func (c *clock) resume() {
	if c.running {
		return
	}
	c.resumedAt = c.now()
	c.running = true
}

func (c *clock) pause() {
	if !c.running {
		return
	}
	c.offset += c.now().Sub(c.resumedAt)
	c.running = false
}

// sync returns the current playback position. Audio is authoritative when
// present; otherwise wall time loops over the video duration while playing.
func (c *clock) sync(audioValid, videoValid, playing bool, duration time.Duration) time.Duration {
	if audioValid {
		return c.audioSync
	}
	if !playing || !videoValid || duration <= 0 {
		return 0
	}

	elapsed := c.offset
	if c.running {
		elapsed += c.now().Sub(c.resumedAt)
	}
	return elapsed % duration
}
