package player

import (
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/njyeung/framesync/logging"
)

// Options configures a Player
type Options struct {
	// Requested geometry in pixels, used until a size is allocated
	Width  int
	Height int
	Flags  Flags

	// Overlay selects YCbCr overlay frames instead of raw RGBA surfaces
	Overlay bool

	// NoAudio ignores audio streams; video follows the wall clock
	NoAudio bool

	AudioBufferSize int
	VideoBufferSize int
	AudioSamples    int
	UnderrunBackoff time.Duration
	MaxPullFailures int

	Engine  Engine
	Device  AudioDevice
	Surface Surface
	Logger  *slog.Logger
}

func (o *Options) setDefaults() {
	if o.AudioBufferSize < 1 {
		o.AudioBufferSize = DefaultBufferSize
	}
	if o.VideoBufferSize < 1 {
		o.VideoBufferSize = DefaultBufferSize
	}
	if o.AudioSamples < 1 {
		o.AudioSamples = DefaultAudioSamples
	}
	if o.UnderrunBackoff <= 0 {
		o.UnderrunBackoff = DefaultUnderrunBackoff
	}
	if o.MaxPullFailures < 1 {
		o.MaxPullFailures = DefaultMaxPullFailures
	}
	if o.Device == nil {
		o.NoAudio = true
		o.Device = NullDevice{}
	}
	if o.Surface == nil {
		o.Surface = nullSurface{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Player keeps decoded video in step with an independently clocked audio
// device.
//
// A single mutex guards all player state: the session, the playing flag, the
// clock and both rings. It serializes the audio pull callback with the
// presentation driver and the fill workers. Fill workers yield it between
// pulls so the callback waits for at most one decode. Lower callback latency
// needs a dedicated lock for the audio ring.
type Player struct {
	opts Options
	log  *slog.Logger

	// serializes Load and Close
	loadMu sync.Mutex

	mu        sync.Mutex
	audioCond *sync.Cond
	videoCond *sync.Cond
	wake      chan struct{}

	session *session
	state   State
	playing bool
	closed  bool
	clock   clock

	audio *ring
	video *ring

	area           image.Rectangle
	frameW, frameH int
	shown          *image.RGBA
	shownValid     bool

	stats Stats
}

// New creates a stopped player
func New(opts Options) *Player {
	opts.setDefaults()

	p := &Player{
		opts:  opts,
		log:   logging.WithComponent(opts.Logger, "player"),
		wake:  make(chan struct{}, 1),
		clock: newClock(),
	}
	p.audioCond = sync.NewCond(&p.mu)
	p.videoCond = sync.NewCond(&p.mu)
	return p
}

// Load opens path and prepares it for playback. Any current stream is shut
// down first. On failure the player is left stopped.
func (p *Player) Load(path string) error {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	old := p.detachLocked()
	p.mu.Unlock()

	p.release(old)
	p.opts.Device.Close()

	s, err := p.openSession(path)
	if err != nil {
		p.log.Warn("load failed", "path", path, "error", err)
		return err
	}

	p.mu.Lock()
	err = p.startLocked(s)
	if err != nil {
		p.state = StateStopped
	}
	p.mu.Unlock()

	// the device may be inside pullAudio waiting for p.mu
	if err != nil {
		p.opts.Device.Close()
		s.stream.Close()
		p.log.Warn("load failed", "path", path, "error", err)
		return err
	}
	return nil
}

// SetAction applies a playback command and returns whether the player is
// playing afterwards. Commands are ignored while stopped.
func (p *Player) SetAction(a Action) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch a {
	case ActionPlay:
		p.setPlayingLocked(true)
	case ActionPause:
		p.setPlayingLocked(false)
	case ActionToggle:
		p.setPlayingLocked(!p.playing)
	case ActionQuery:
	}
	return p.playing
}

// Play starts or resumes playback
func (p *Player) Play() bool {
	return p.SetAction(ActionPlay)
}

// Pause suspends playback
func (p *Player) Pause() bool {
	return p.SetAction(ActionPause)
}

// Toggle flips between playing and paused
func (p *Player) Toggle() bool {
	return p.SetAction(ActionToggle)
}

// IsPlaying returns current playing state
func (p *Player) IsPlaying() bool {
	return p.SetAction(ActionQuery)
}

// State returns the playback state
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) setPlayingLocked(play bool) {
	s := p.session
	if s == nil || play == p.playing {
		return
	}

	p.playing = play
	if play {
		p.state = StatePlaying
		p.clock.resume()
	} else {
		p.state = StatePaused
		p.clock.pause()
	}
	if s.audioValid {
		p.opts.Device.SetPaused(!play)
	}
	p.wakeDriver()
}

// Stats returns a snapshot of playback counters
func (p *Player) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.stats
	st.Sync = p.syncLocked()
	if p.audio != nil {
		st.AudioBuffered = p.audio.filled()
	}
	if p.video != nil {
		st.VideoBuffered = p.video.filled()
	}
	return st
}

func (p *Player) syncLocked() time.Duration {
	s := p.session
	if s == nil {
		return 0
	}
	return p.clock.sync(s.audioValid, s.videoValid, p.playing, s.duration)
}

// wakeDriver interrupts the presentation driver's current wait
func (p *Player) wakeDriver() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Close stops every goroutine and releases all frame buffers. It is safe to
// call more than once.
func (p *Player) Close() {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	old := p.detachLocked()
	p.mu.Unlock()

	p.release(old)
	p.opts.Device.Close()

	p.mu.Lock()
	p.shown = nil
	p.mu.Unlock()

	p.log.Debug("player closed")
}
