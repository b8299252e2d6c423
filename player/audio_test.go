package player

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// audioPlayer builds a player with a hand-filled audio ring and no workers
func audioPlayer(t *testing.T, sizes ...int) *Player {
	t.Helper()
	p := newTestPlayer(t, Options{})
	p.session = &session{audioValid: true}
	p.audio = newRing(len(sizes)+1, p.audioCond)
	for i := range p.audio.slots {
		p.audio.slots[i] = newAudioSlot(8)
	}
	for i, n := range sizes {
		s := p.audio.slots[i]
		copy(s.Audio.Data, bytes.Repeat([]byte{byte(i + 1)}, n))
		s.Audio.Size = n
		s.PTS = time.Duration(i+1) * 10 * time.Millisecond
		s.markFilled()
	}
	// no goroutines to join
	t.Cleanup(func() {
		p.mu.Lock()
		p.session = nil
		p.mu.Unlock()
	})
	return p
}

func TestPullAudioPartialCopy(t *testing.T) {
	p := audioPlayer(t, 8, 4)

	out := make([]byte, 6)
	p.pullAudio(out)
	assert.Equal(t, []byte{1, 1, 1, 1, 1, 1}, out)
	assert.Equal(t, 10*time.Millisecond, p.clock.audioSync)
	// the slot is only half drained
	assert.Equal(t, 0, p.audio.cursor)
	assert.Equal(t, 6, p.audio.slots[0].Audio.read)

	out = make([]byte, 6)
	p.pullAudio(out)
	assert.Equal(t, []byte{1, 1, 2, 2, 2, 2}, out)
	assert.Equal(t, 20*time.Millisecond, p.clock.audioSync)
	assert.Equal(t, 2, p.audio.cursor)
	assert.Zero(t, p.stats.AudioUnderruns)
}

func TestPullAudioUnderrunZeroFills(t *testing.T) {
	p := audioPlayer(t, 4)

	out := bytes.Repeat([]byte{9}, 8)
	p.pullAudio(out)
	assert.Equal(t, []byte{1, 1, 1, 1, 0, 0, 0, 0}, out)
	assert.EqualValues(t, 1, p.stats.AudioUnderruns)
	assert.Equal(t, 10*time.Millisecond, p.clock.audioSync)
}

func TestPullAudioEmptyRing(t *testing.T) {
	p := audioPlayer(t)

	out := bytes.Repeat([]byte{9}, 4)
	p.pullAudio(out)
	assert.Equal(t, []byte{0, 0, 0, 0}, out)
	assert.EqualValues(t, 1, p.stats.AudioUnderruns)
	assert.Zero(t, p.clock.audioSync)
}

func TestPullAudioWithoutSession(t *testing.T) {
	p := newTestPlayer(t, Options{})

	out := bytes.Repeat([]byte{9}, 4)
	p.pullAudio(out)
	assert.Equal(t, []byte{0, 0, 0, 0}, out)
	assert.Zero(t, p.stats.AudioUnderruns)
}
