package player

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticVideo(t *testing.T) {
	e := &SyntheticEngine{FrameInterval: 100 * time.Millisecond, Duration: 250 * time.Millisecond}
	s, err := e.Open("ignored")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SelectStream(KindVideo, 0))
	assert.True(t, s.Valid(KindVideo))
	w, h := s.NativeSize()
	assert.Equal(t, 640, w)
	assert.Equal(t, 360, h)

	slot := newVideoSlot(16, 8, false)
	for _, want := range []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond} {
		ok, err := s.PullFrame(KindVideo, slot)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, slot.PTS)
	}
	_, err = s.PullFrame(KindVideo, slot)
	assert.ErrorIs(t, err, io.EOF)

	raw := slot.Video.(*RawSurface)
	assert.Equal(t, uint8(255), raw.Img.Pix[3])
}

func TestSyntheticOverlay(t *testing.T) {
	s, err := (&SyntheticEngine{}).Open("")
	require.NoError(t, err)
	require.NoError(t, s.SelectStream(KindVideo, 0))

	slot := newVideoSlot(16, 8, true)
	ok, err := s.PullFrame(KindVideo, slot)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotZero(t, slot.Video.(*Overlay).Img.Y[0])
}

func TestSyntheticAudio(t *testing.T) {
	s, err := (&SyntheticEngine{Duration: time.Second}).Open("")
	require.NoError(t, err)
	require.NoError(t, s.SelectStream(KindAudio, 0))
	assert.Equal(t, AudioFormat{SampleRate: 44100, Channels: 2}, s.AudioFormat())

	slot := newAudioSlot(4 * 441) // 10ms
	ok, err := s.PullFrame(KindAudio, slot)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, len(slot.Audio.Data), slot.Audio.Size)
	assert.Zero(t, slot.PTS)

	ok, err = s.PullFrame(KindAudio, slot)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10*time.Millisecond, slot.PTS)
}

func TestSyntheticNoAudio(t *testing.T) {
	s, err := (&SyntheticEngine{NoAudio: true}).Open("")
	require.NoError(t, err)
	assert.Error(t, s.SelectStream(KindAudio, 0))
	assert.False(t, s.Valid(KindAudio))
}

func TestSyntheticPlaysThroughPlayer(t *testing.T) {
	surf := &recordingSurface{}
	p := newTestPlayer(t, Options{
		Width:   64,
		Height:  36,
		Engine:  &SyntheticEngine{FrameInterval: 5 * time.Millisecond, Duration: time.Second, NoAudio: true},
		Surface: surf,
	})
	loadOK(t, p)
	p.Play()

	require.Eventually(t, func() bool { return p.Stats().Presented > 3 }, waitFor, tick)
	assert.Greater(t, surf.redrawCount(), 3)
}
