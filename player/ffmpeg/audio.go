package ffmpeg

import (
	"fmt"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/njyeung/framesync/player"
)

const (
	outChannels      = 2
	outBytesPerFrame = outChannels * 2 // s16le stereo
)

// resampler converts decoded audio to interleaved s16le stereo and cuts it
// into fixed-size frames
type resampler struct {
	swrCtx *astiav.SoftwareResampleContext
	out    *astiav.Frame

	// converted bytes not yet handed out
	pending []byte

	// sample position of pending[0]
	samples int64
	started bool
}

func newResampler() (*resampler, error) {
	swrCtx := astiav.AllocSoftwareResampleContext()
	if swrCtx == nil {
		return nil, fmt.Errorf("failed to allocate swr context")
	}
	return &resampler{
		swrCtx:  swrCtx,
		out:     astiav.AllocFrame(),
		pending: make([]byte, 0, 192000), // ~1 second buffer
	}, nil
}

// push resamples one decoded frame onto the pending buffer
func (r *resampler) push(src *astiav.Frame, timeBase astiav.Rational) error {
	if !r.started {
		r.started = true
		if pts := toDuration(src.Pts(), timeBase); pts > 0 {
			r.samples = int64(pts) * player.AudioSampleRate / int64(time.Second)
		}
	}

	r.out.Unref()
	r.out.SetSampleFormat(astiav.SampleFormatS16)
	r.out.SetSampleRate(player.AudioSampleRate)
	r.out.SetChannelLayout(astiav.ChannelLayoutStereo)

	// room for upsampling plus what the resampler holds back
	n := src.NbSamples()
	if rate := src.SampleRate(); rate > 0 {
		n = n*player.AudioSampleRate/rate + 256
	}
	r.out.SetNbSamples(n)

	if err := r.out.AllocBuffer(0); err != nil {
		return fmt.Errorf("failed to allocate audio buffer: %w", err)
	}
	if err := r.swrCtx.ConvertFrame(src, r.out); err != nil {
		return fmt.Errorf("failed to resample frame: %w", err)
	}

	// plane 0 for interleaved S16
	plane, err := r.out.Data().Bytes(0)
	if err != nil {
		return fmt.Errorf("failed to get audio bytes: %w", err)
	}
	size := r.out.NbSamples() * outBytesPerFrame
	if len(plane) < size {
		size = len(plane) - len(plane)%outBytesPerFrame
	}
	r.pending = append(r.pending, plane[:size]...)
	return nil
}

// ready reports whether a full frame of frameBytes is buffered
func (r *resampler) ready(frameBytes int) bool {
	return len(r.pending) >= frameBytes
}

// take moves up to one frame from pending into a, stamping it with the
// position of its first sample. It reports false when nothing is left.
func (r *resampler) take(a *player.AudioPayload) (time.Duration, bool) {
	if len(r.pending) == 0 {
		return 0, false
	}

	pts := time.Duration(r.samples * int64(time.Second) / player.AudioSampleRate)

	n := copy(a.Data, r.pending)
	a.Size = n
	r.pending = r.pending[:copy(r.pending, r.pending[n:])]
	r.samples += int64(n / outBytesPerFrame)
	return pts, true
}

func (r *resampler) close() {
	if r.out != nil {
		r.out.Free()
		r.out = nil
	}
	if r.swrCtx != nil {
		r.swrCtx.Free()
		r.swrCtx = nil
	}
	r.pending = nil
}
