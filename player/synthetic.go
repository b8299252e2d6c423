package player

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sync"
	"time"
)

// SyntheticEngine generates scrolling colour bars and a sine tone instead of
// decoding a file. The path passed to Open is ignored.
type SyntheticEngine struct {
	Width, Height int
	FrameInterval time.Duration
	Duration      time.Duration
	ToneHz        float64
	NoAudio       bool
}

var bars = []color.RGBA{
	{192, 192, 192, 255},
	{192, 192, 0, 255},
	{0, 192, 192, 255},
	{0, 192, 0, 255},
	{192, 0, 192, 255},
	{192, 0, 0, 255},
	{0, 0, 192, 255},
}

// Open implements Engine
func (e *SyntheticEngine) Open(string) (Stream, error) {
	s := &syntheticStream{cfg: *e}
	if s.cfg.Width <= 0 || s.cfg.Height <= 0 {
		s.cfg.Width, s.cfg.Height = 640, 360
	}
	if s.cfg.FrameInterval <= 0 {
		s.cfg.FrameInterval = 40 * time.Millisecond
	}
	if s.cfg.Duration <= 0 {
		s.cfg.Duration = 10 * time.Second
	}
	if s.cfg.ToneHz <= 0 {
		s.cfg.ToneHz = 440
	}
	return s, nil
}

type syntheticStream struct {
	mu  sync.Mutex
	cfg SyntheticEngine

	audioSel, videoSel bool
	frames             int
	samples            int64
	closed             bool
}

func (s *syntheticStream) SelectStream(kind Kind, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index != 0 || (kind == KindAudio && s.cfg.NoAudio) {
		return fmt.Errorf("no %s stream %d", kind, index)
	}
	if kind == KindAudio {
		s.audioSel = true
	} else {
		s.videoSel = true
	}
	return nil
}

func (s *syntheticStream) Valid(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == KindAudio {
		return s.audioSel
	}
	return s.videoSel
}

func (s *syntheticStream) Duration() time.Duration { return s.cfg.Duration }

func (s *syntheticStream) NativeSize() (int, int) { return s.cfg.Width, s.cfg.Height }

func (s *syntheticStream) AudioFormat() AudioFormat {
	return AudioFormat{SampleRate: AudioSampleRate, Channels: 2}
}

func (s *syntheticStream) PullFrame(kind Kind, slot *Slot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, io.EOF
	}
	if kind == KindAudio {
		return s.pullAudio(slot)
	}
	return s.pullVideo(slot)
}

func (s *syntheticStream) pullVideo(slot *Slot) (bool, error) {
	pts := time.Duration(s.frames) * s.cfg.FrameInterval
	if pts >= s.cfg.Duration {
		return false, io.EOF
	}
	if slot.Video == nil {
		return false, errors.New("video slot has no payload")
	}

	b := slot.Video.Bounds()
	shift := s.frames * max(b.Dx()/100, 1)
	switch v := slot.Video.(type) {
	case *RawSurface:
		paintBars(v.Img, shift)
	case *Overlay:
		paintBarsYCbCr(v.Img, shift)
	}

	s.frames++
	slot.PTS = pts
	return true, nil
}

func (s *syntheticStream) pullAudio(slot *Slot) (bool, error) {
	pts := time.Duration(s.samples * int64(time.Second) / AudioSampleRate)
	if pts >= s.cfg.Duration {
		return false, io.EOF
	}

	data := slot.Audio.Data
	n := len(data) / 4
	for i := 0; i < n; i++ {
		t := float64(s.samples+int64(i)) / AudioSampleRate
		v := int16(math.Sin(2*math.Pi*s.cfg.ToneHz*t) * 0.2 * math.MaxInt16)
		binary.LittleEndian.PutUint16(data[i*4:], uint16(v))
		binary.LittleEndian.PutUint16(data[i*4+2:], uint16(v))
	}

	slot.Audio.Size = n * 4
	slot.PTS = pts
	s.samples += int64(n)
	return true, nil
}

func (s *syntheticStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func barAt(x, width, shift int) color.RGBA {
	return bars[((x+shift)%width)*len(bars)/width]
}

func paintBars(img *image.RGBA, shift int) {
	b := img.Rect
	w := b.Dx()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, barAt(x-b.Min.X, w, shift))
		}
	}
}

func paintBarsYCbCr(img *image.YCbCr, shift int) {
	b := img.Rect
	w := b.Dx()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := barAt(x-b.Min.X, w, shift)
			yy, cb, cr := color.RGBToYCbCr(c.R, c.G, c.B)
			img.Y[img.YOffset(x, y)] = yy
			ci := img.COffset(x, y)
			img.Cb[ci] = cb
			img.Cr[ci] = cr
		}
	}
}
