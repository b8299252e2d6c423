package speaker

import (
	"testing"

	"github.com/njyeung/framesync/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSample(t *testing.T) {
	left, right := decodeSample([]byte{0xff, 0x7f, 0x01, 0x80})
	assert.InDelta(t, 1.0, left, 1e-9)
	assert.InDelta(t, -1.0, right, 1e-9)

	left, right = decodeSample([]byte{0, 0, 0, 0})
	assert.Zero(t, left)
	assert.Zero(t, right)
}

func TestStreamerPullsWholeFrames(t *testing.T) {
	format := player.AudioFormat{SampleRate: 44100, Channels: 2, Samples: 4}

	var pulls int
	st := newStreamer(format, func(b []byte) {
		pulls++
		require.Len(t, b, 16)
		for i := 0; i < len(b); i += 4 {
			// left = 16384, right = 0
			b[i], b[i+1], b[i+2], b[i+3] = 0x00, 0x40, 0, 0
		}
	})

	samples := make([][2]float64, 6)
	n, ok := st.Stream(samples)
	assert.True(t, ok)
	assert.Equal(t, 6, n)
	assert.Equal(t, 2, pulls)
	for _, s := range samples {
		assert.InDelta(t, 16384.0/32767, s[0], 1e-9)
		assert.Zero(t, s[1])
	}

	// the second frame still has two samples buffered
	n, _ = st.Stream(samples[:2])
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, pulls)
}

func TestStreamerPausedEmitsSilence(t *testing.T) {
	format := player.AudioFormat{SampleRate: 44100, Channels: 2, Samples: 4}
	st := newStreamer(format, func([]byte) {
		t.Fatal("paused streamer must not pull")
	})
	st.paused.Store(true)

	samples := [][2]float64{{1, 1}, {1, 1}}
	n, ok := st.Stream(samples)
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	assert.Equal(t, [][2]float64{{0, 0}, {0, 0}}, samples)
}

func TestStreamerClosed(t *testing.T) {
	format := player.AudioFormat{SampleRate: 44100, Channels: 2, Samples: 4}
	st := newStreamer(format, func([]byte) {})
	st.closed.Store(true)

	n, ok := st.Stream(make([][2]float64, 4))
	assert.False(t, ok)
	assert.Zero(t, n)
}
