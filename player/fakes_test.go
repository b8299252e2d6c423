package player

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeStream serves scripted frames. Video frames carry their index in the
// first byte of the image; audio frames carry index+1 as a uint32 prefix.
type fakeStream struct {
	mu sync.Mutex

	audioPTS []time.Duration
	videoPTS []time.Duration
	noAudio  bool
	noVideo  bool
	w, h     int
	duration time.Duration

	// frames available to pull; negative means all of them
	videoReady int
	videoErr   error

	audioIdx int
	videoIdx int
	selected map[Kind]bool
	closes   int
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		w:          160,
		h:          90,
		duration:   10 * time.Second,
		videoReady: -1,
		selected:   map[Kind]bool{},
	}
}

func ptsEvery(step time.Duration, n int) []time.Duration {
	pts := make([]time.Duration, n)
	for i := range pts {
		pts[i] = time.Duration(i) * step
	}
	return pts
}

func (s *fakeStream) SelectStream(kind Kind, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if (kind == KindAudio && s.noAudio) || (kind == KindVideo && s.noVideo) {
		return errors.New("no such stream")
	}
	s.selected[kind] = true
	return nil
}

func (s *fakeStream) Valid(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected[kind]
}

func (s *fakeStream) Duration() time.Duration { return s.duration }

func (s *fakeStream) NativeSize() (int, int) { return s.w, s.h }

func (s *fakeStream) AudioFormat() AudioFormat {
	return AudioFormat{SampleRate: AudioSampleRate, Channels: 2}
}

func (s *fakeStream) PullFrame(kind Kind, slot *Slot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == KindAudio {
		if s.audioIdx >= len(s.audioPTS) {
			return false, io.EOF
		}
		binary.LittleEndian.PutUint32(slot.Audio.Data, uint32(s.audioIdx+1))
		slot.Audio.Size = len(slot.Audio.Data)
		slot.PTS = s.audioPTS[s.audioIdx]
		s.audioIdx++
		return true, nil
	}

	if s.videoErr != nil {
		return false, s.videoErr
	}
	if s.videoReady >= 0 && s.videoIdx >= s.videoReady {
		return false, nil
	}
	if s.videoIdx >= len(s.videoPTS) {
		return false, io.EOF
	}
	switch v := slot.Video.(type) {
	case *Overlay:
		v.Img.Y[0] = byte(s.videoIdx)
	case *RawSurface:
		v.Img.Pix[0] = byte(s.videoIdx)
	}
	slot.PTS = s.videoPTS[s.videoIdx]
	s.videoIdx++
	return true, nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *fakeStream) setVideoReady(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoReady = n
}

func (s *fakeStream) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type fakeEngine struct {
	streams []*fakeStream
	err     error
	opened  int
}

func (e *fakeEngine) Open(string) (Stream, error) {
	if e.err != nil {
		return nil, e.err
	}
	s := e.streams[e.opened]
	e.opened++
	return s, nil
}

// fakeDevice never calls pull on its own; tests drive it
type fakeDevice struct {
	mu      sync.Mutex
	pullFn  func([]byte)
	format  AudioFormat
	openErr error
	paused  bool
	opens   int
	closes  int
}

func (d *fakeDevice) Open(format AudioFormat, pull func([]byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return d.openErr
	}
	d.opens++
	d.format = format
	d.pullFn = pull
	d.paused = true
	return nil
}

func (d *fakeDevice) SetPaused(paused bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = paused
}

func (d *fakeDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
}

func (d *fakeDevice) pull(n int) []byte {
	d.mu.Lock()
	fn := d.pullFn
	d.mu.Unlock()

	out := make([]byte, n)
	fn(out)
	return out
}

func (d *fakeDevice) isPaused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

// recordingSurface remembers what was presented
type recordingSurface struct {
	mu       sync.Mutex
	overlays []byte
	blits    []image.Rectangle
	blitted  []byte
	fills    []image.Rectangle
	redraws  int
}

func (r *recordingSurface) DisplayOverlay(ov *Overlay, dst image.Rectangle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overlays = append(r.overlays, ov.Img.Y[0])
	return nil
}

func (r *recordingSurface) Blit(img *image.RGBA, dst image.Rectangle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blits = append(r.blits, dst)
	r.blitted = append(r.blitted, img.Pix[0])
	return nil
}

func (r *recordingSurface) Fill(area image.Rectangle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fills = append(r.fills, area)
	return nil
}

func (r *recordingSurface) Redraw() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redraws++
}

func (r *recordingSurface) shown() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.overlays...)
}

func (r *recordingSurface) redrawCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redraws
}

func newTestPlayer(t *testing.T, opts Options) *Player {
	t.Helper()
	if opts.Width == 0 {
		opts.Width, opts.Height = 160, 90
	}
	if opts.AudioSamples == 0 {
		opts.AudioSamples = 4 // 16 byte frames
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := New(opts)
	t.Cleanup(p.Close)
	return p
}

func loadOK(t *testing.T, p *Player) {
	t.Helper()
	require.NoError(t, p.Load("clip.mp4"))
}

// slowStream delays every pull and runs onPull before it. Pulls happen under
// the player mutex, so onPull may inspect player state.
type slowStream struct {
	*fakeStream
	delay  func() time.Duration
	onPull func(kind Kind)
}

func (s *slowStream) PullFrame(kind Kind, slot *Slot) (bool, error) {
	if s.onPull != nil {
		s.onPull(kind)
	}
	if s.delay != nil {
		time.Sleep(s.delay())
	}
	return s.fakeStream.PullFrame(kind, slot)
}

// streamEngine opens the same stream every time
type streamEngine struct {
	stream Stream
}

func (e streamEngine) Open(string) (Stream, error) {
	return e.stream, nil
}

// lockedBuffer is a bytes.Buffer safe for concurrent log writes
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
