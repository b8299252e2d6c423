// Package ffmpeg decodes media files for the player with FFmpeg.
package ffmpeg

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/njyeung/framesync/logging"
	"github.com/njyeung/framesync/player"
)

func init() {
	astiav.SetLogLevel(astiav.LogLevelQuiet)
}

// DefaultQueueLimit caps the packets held for a decoder that is not pulling
const DefaultQueueLimit = 256

var errEndOfStream = errors.New("end of stream")

// Engine opens media files with libavformat
type Engine struct {
	Logger     *slog.Logger
	QueueLimit int
}

// Open implements player.Engine
func (e *Engine) Open(path string) (player.Stream, error) {
	log := e.Logger
	if log == nil {
		log = slog.Default()
	}
	log = logging.WithComponent(log, "ffmpeg").With("path", path)

	limit := e.QueueLimit
	if limit < 1 {
		limit = DefaultQueueLimit
	}

	d, err := openDemuxer(path)
	if err != nil {
		return nil, err
	}
	return &stream{log: log, demux: d, queueLimit: limit}, nil
}

// stream decodes one opened file. Packets are demuxed on demand by whichever
// kind needs one; packets for the other kind are queued for it.
type stream struct {
	mu  sync.Mutex
	log *slog.Logger

	demux      *demuxer
	demuxEOF   bool
	queueLimit int
	closed     bool

	video      *decoder
	videoW     int
	videoH     int
	scaler     *scaler
	audio      *decoder
	resampler  *resampler
	audioEnded bool
}

func (s *stream) SelectStream(kind player.Kind, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mt := astiav.MediaTypeVideo
	if kind == player.KindAudio {
		mt = astiav.MediaTypeAudio
	}
	st := s.demux.nthStream(mt, index)
	if st == nil {
		return fmt.Errorf("no %s stream %d", kind, index)
	}

	dec, err := openDecoder(st, s.queueLimit)
	if err != nil {
		return fmt.Errorf("%s stream %d: %w", kind, index, err)
	}

	switch kind {
	case player.KindVideo:
		if s.video != nil {
			s.video.close()
		}
		s.video = dec
		s.videoW = st.CodecParameters().Width()
		s.videoH = st.CodecParameters().Height()
		if s.scaler == nil {
			s.scaler = newScaler()
		}
	case player.KindAudio:
		rs, err := newResampler()
		if err != nil {
			dec.close()
			return err
		}
		if s.audio != nil {
			s.audio.close()
			s.resampler.close()
		}
		s.audio = dec
		s.resampler = rs
	}
	return nil
}

func (s *stream) Valid(kind player.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decoderFor(kind) != nil
}

func (s *stream) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	return s.demux.duration()
}

func (s *stream) NativeSize() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoW, s.videoH
}

func (s *stream) AudioFormat() player.AudioFormat {
	return player.AudioFormat{
		SampleRate: player.AudioSampleRate,
		Channels:   outChannels,
	}
}

func (s *stream) decoderFor(kind player.Kind) *decoder {
	if kind == player.KindAudio {
		return s.audio
	}
	return s.video
}

// PullFrame implements player.Stream
func (s *stream) PullFrame(kind player.Kind, slot *player.Slot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, io.EOF
	}
	dec := s.decoderFor(kind)
	if dec == nil {
		return false, fmt.Errorf("no %s stream selected", kind)
	}

	if kind == player.KindAudio {
		return s.pullAudio(slot)
	}
	return s.pullVideo(slot)
}

func (s *stream) pullVideo(slot *player.Slot) (bool, error) {
	dec := s.video
	if err := dec.receive(func() (*astiav.Packet, error) { return s.nextPacket(dec) }); err != nil {
		if errors.Is(err, errEndOfStream) {
			return false, io.EOF
		}
		return false, err
	}
	defer dec.frame.Unref()

	if slot.Video == nil {
		return false, errors.New("video slot has no payload")
	}
	if err := s.scaler.scaleInto(dec.frame, slot.Video); err != nil {
		return false, err
	}
	slot.PTS = toDuration(dec.frame.Pts(), dec.timeBase)
	return true, nil
}

func (s *stream) pullAudio(slot *player.Slot) (bool, error) {
	dec := s.audio
	for !s.audioEnded && !s.resampler.ready(len(slot.Audio.Data)) {
		err := dec.receive(func() (*astiav.Packet, error) { return s.nextPacket(dec) })
		if errors.Is(err, errEndOfStream) {
			s.audioEnded = true
			break
		}
		if err != nil {
			return false, err
		}

		err = s.resampler.push(dec.frame, dec.timeBase)
		dec.frame.Unref()
		if err != nil {
			// skip frames that fail to resample
			s.log.Debug("resample", "error", err)
		}
	}

	pts, ok := s.resampler.take(&slot.Audio)
	if !ok {
		return false, io.EOF
	}
	slot.PTS = pts
	return true, nil
}

// nextPacket returns the next packet for dec, demuxing as needed. It returns
// nil once the input is exhausted.
func (s *stream) nextPacket(dec *decoder) (*astiav.Packet, error) {
	if pkt := dec.queue.pop(); pkt != nil {
		return pkt, nil
	}

	for !s.demuxEOF {
		pkt, err := s.demux.readPacket()
		if errors.Is(err, astiav.ErrEof) {
			s.demuxEOF = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read packet: %w", err)
		}

		switch other := s.other(dec); {
		case pkt.StreamIndex() == dec.index:
			return pkt, nil
		case other != nil && pkt.StreamIndex() == other.index:
			if other.queue.push(pkt) {
				s.log.Warn("packet queue full, dropped oldest", "stream", other.index)
			}
		default:
			pkt.Free()
		}
	}
	return nil, nil
}

func (s *stream) other(dec *decoder) *decoder {
	if dec == s.audio {
		return s.video
	}
	return s.audio
}

// Close releases all resources
func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.video != nil {
		s.video.close()
	}
	if s.scaler != nil {
		s.scaler.close()
	}
	if s.audio != nil {
		s.audio.close()
	}
	if s.resampler != nil {
		s.resampler.close()
	}
	s.demux.close()
	return nil
}
