package player

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/njyeung/framesync/logging"
	"golang.org/x/sync/errgroup"
)

// session is one loaded stream and the goroutines serving it. A goroutine
// stays alive only while its session is the player's current one.
type session struct {
	path   string
	stream Stream

	audioValid bool
	videoValid bool
	duration   time.Duration
	format     AudioFormat

	audioFill fillState
	videoFill fillState

	group errgroup.Group
}

// fillState tracks one fill worker's progress through the stream
type fillState struct {
	log      *slog.Logger
	eof      bool
	failures int
}

// openSession opens path and the audio device. It runs without p.mu held.
func (p *Player) openSession(path string) (*session, error) {
	stream, err := p.opts.Engine.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "open", Err: fmt.Errorf("%w: %w", ErrOpen, err)}
	}

	// always the first stream of each kind
	if err := stream.SelectStream(KindVideo, 0); err != nil {
		p.log.Debug("no video stream", "path", path, "error", err)
	}
	if !p.opts.NoAudio {
		if err := stream.SelectStream(KindAudio, 0); err != nil {
			p.log.Debug("no audio stream", "path", path, "error", err)
		}
	}

	fillLog := logging.WithComponent(p.opts.Logger, "fill")
	s := &session{
		path:       path,
		stream:     stream,
		audioValid: !p.opts.NoAudio && stream.Valid(KindAudio),
		videoValid: stream.Valid(KindVideo),
		duration:   stream.Duration(),
		audioFill:  fillState{log: fillLog.With("kind", KindAudio)},
		videoFill:  fillState{log: fillLog.With("kind", KindVideo)},
	}

	if !s.audioValid && !s.videoValid {
		stream.Close()
		return nil, &LoadError{Path: path, Op: "probe", Err: fmt.Errorf("%w: no audio or video stream", ErrOpen)}
	}

	if s.audioValid {
		s.format = stream.AudioFormat()
		s.format.Samples = p.opts.AudioSamples
		if err := p.opts.Device.Open(s.format, p.pullAudio); err != nil {
			stream.Close()
			return nil, &LoadError{Path: path, Op: "audio", Err: fmt.Errorf("%w: %w", ErrAudioDevice, err)}
		}
	}

	return s, nil
}

// startLocked sizes the rings for s, primes them and starts the workers
func (p *Player) startLocked(s *session) error {
	p.clock.reset()
	p.playing = false
	p.audio = nil
	p.video = nil

	if s.audioValid {
		p.audio = newRing(p.opts.AudioBufferSize, p.audioCond)
		for i := range p.audio.slots {
			p.audio.slots[i] = newAudioSlot(s.format.FrameBytes())
		}
	}
	if s.videoValid {
		p.video = newRing(p.opts.VideoBufferSize, p.videoCond)
	}

	p.session = s

	if err := p.resizeLocked(); err != nil {
		p.session = nil
		p.audio = nil
		p.video = nil
		return &LoadError{Path: s.path, Op: "resize", Err: err}
	}
	if s.audioValid {
		p.fillLocked(s, p.audio, KindAudio, &s.audioFill, false)
	}

	if s.audioValid {
		r := p.audio
		s.group.Go(func() error {
			return p.fillLoop(s, r, KindAudio, &s.audioFill)
		})
	}
	if s.videoValid {
		r := p.video
		s.group.Go(func() error {
			return p.fillLoop(s, r, KindVideo, &s.videoFill)
		})
		s.group.Go(func() error {
			return p.presentLoop(s)
		})
	}

	p.state = StateLoaded
	p.log.Info("loaded",
		"path", s.path,
		"audio", s.audioValid,
		"video", s.videoValid,
		"duration", s.duration,
		"frame_w", p.frameW,
		"frame_h", p.frameH,
	)
	return nil
}

// detachLocked clears the current session and its rings and wakes every
// goroutine blocked on it. The caller must release p.mu before joining the
// returned session.
func (p *Player) detachLocked() *session {
	s := p.session
	p.session = nil
	p.audio = nil
	p.video = nil
	p.state = StateStopped
	p.playing = false
	p.shownValid = false

	p.wakeDriver()
	p.audioCond.Broadcast()
	p.videoCond.Broadcast()
	return s
}

// release joins the goroutines of a detached session and closes its stream
func (p *Player) release(s *session) {
	if s == nil {
		return
	}
	s.group.Wait()
	if err := s.stream.Close(); err != nil {
		p.log.Warn("close stream", "path", s.path, "error", err)
	}
}
