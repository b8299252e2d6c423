// Package speaker plays the player's audio through the system output with
// beep.
package speaker

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/njyeung/framesync/player"
)

// BufferDuration is the latency of the speaker's own buffer
const BufferDuration = 50 * time.Millisecond

var (
	initOnce sync.Once
	initErr  error
	initRate beep.SampleRate
)

// Init opens the system output once per process. Calling it early triggers
// audio permission prompts before playback starts.
func Init(sampleRate int) error {
	initOnce.Do(func() {
		initRate = beep.SampleRate(sampleRate)
		initErr = speaker.Init(initRate, initRate.N(BufferDuration))
	})
	return initErr
}

// Device is a player.AudioDevice on top of the beep speaker
type Device struct {
	mu       sync.Mutex
	streamer *streamer
}

// New returns a closed device
func New() *Device {
	return &Device{}
}

// Open starts pulling s16le frames from pull at the given format
func (d *Device) Open(format player.AudioFormat, pull func([]byte)) error {
	if format.Channels != 2 {
		return fmt.Errorf("unsupported channel count %d", format.Channels)
	}
	if err := Init(format.SampleRate); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	if int(initRate) != format.SampleRate {
		return fmt.Errorf("speaker runs at %d Hz, stream wants %d Hz", initRate, format.SampleRate)
	}
	if format.FrameBytes() <= 0 {
		return errors.New("empty audio frame")
	}

	st := newStreamer(format, pull)
	// a new stream starts paused, like the player
	st.paused.Store(true)

	d.mu.Lock()
	if d.streamer != nil {
		d.streamer.closed.Store(true)
	}
	d.streamer = st
	d.mu.Unlock()

	speaker.Clear()
	speaker.Play(st)
	return nil
}

// SetPaused switches between pulling and silence. It never blocks on the
// speaker, so it is safe to call while holding the lock pull takes.
func (d *Device) SetPaused(paused bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.streamer != nil {
		d.streamer.paused.Store(paused)
	}
}

// Close stops pulling. It waits for an in-flight pull to finish, so it must
// not be called while holding the lock pull takes.
func (d *Device) Close() {
	d.mu.Lock()
	st := d.streamer
	d.streamer = nil
	d.mu.Unlock()

	if st == nil {
		return
	}
	st.closed.Store(true)
	speaker.Clear()
}

// streamer implements beep.Streamer over the pull callback
type streamer struct {
	pull   func([]byte)
	paused atomic.Bool
	closed atomic.Bool

	// one device frame of s16le stereo
	buf []byte
	pos int
}

func newStreamer(format player.AudioFormat, pull func([]byte)) *streamer {
	n := format.FrameBytes()
	return &streamer{
		pull: pull,
		buf:  make([]byte, n),
		pos:  n,
	}
}

func (s *streamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.closed.Load() {
		return 0, false
	}

	// when paused, fill buff with silence
	if s.paused.Load() {
		for i := range samples {
			samples[i][0] = 0
			samples[i][1] = 0
		}
		return len(samples), true
	}

	// buf (raw s16le bytes):
	// ┌────┬────┬────┬────┬────┬────┬────┬────┬─...
	// │ L0 │ L0 │ R0 │ R0 │ L1 │ L1 │ R1 │ R1 │
	// │ lo │ hi │ lo │ hi │ lo │ hi │ lo │ hi │
	// └────┴────┴────┴────┴────┴────┴────┴────┴─...
	//
	// (4 bytes = 1 stereo sample)
	const bytesPerSample = 4

	for i := range samples {
		if s.pos+bytesPerSample > len(s.buf) {
			s.pull(s.buf)
			s.pos = 0
		}
		samples[i][0], samples[i][1] = decodeSample(s.buf[s.pos:])
		s.pos += bytesPerSample
	}
	return len(samples), true
}

func (s *streamer) Err() error {
	return nil
}

// decodeSample converts one s16le stereo sample to the [-1, 1] range beep
// expects
func decodeSample(b []byte) (left, right float64) {
	const maxInt16 = 32767
	l := int16(b[0]) | int16(b[1])<<8
	r := int16(b[2]) | int16(b[3])<<8
	return float64(l) / maxInt16, float64(r) / maxInt16
}
