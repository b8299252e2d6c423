package ffmpeg

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
)

// decoder wraps a codec context fed from a packet queue
type decoder struct {
	codecCtx *astiav.CodecContext
	frame    *astiav.Frame
	timeBase astiav.Rational
	index    int

	queue   packetQueue
	flushed bool
}

func openDecoder(stream *astiav.Stream, queueLimit int) (*decoder, error) {
	params := stream.CodecParameters()

	// Find decoder
	codec := astiav.FindDecoder(params.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("codec not found: %s", params.CodecID())
	}

	d := &decoder{
		timeBase: stream.TimeBase(),
		index:    stream.Index(),
		queue:    packetQueue{limit: queueLimit},
	}

	// Allocate codec context
	d.codecCtx = astiav.AllocCodecContext(codec)
	if d.codecCtx == nil {
		return nil, errors.New("failed to allocate codec context")
	}

	// Copy parameters
	if err := params.ToCodecContext(d.codecCtx); err != nil {
		d.close()
		return nil, fmt.Errorf("failed to copy codec params: %w", err)
	}

	// Open codec
	if err := d.codecCtx.Open(codec, nil); err != nil {
		d.close()
		return nil, fmt.Errorf("failed to open codec: %w", err)
	}

	d.frame = astiav.AllocFrame()
	return d, nil
}

// receive decodes the next frame into d.frame. next supplies packets; it
// returns nil once the input is exhausted, after which the decoder is
// drained. The caller must Unref d.frame.
func (d *decoder) receive(next func() (*astiav.Packet, error)) error {
	for {
		err := d.codecCtx.ReceiveFrame(d.frame)
		if err == nil {
			return nil
		}
		if errors.Is(err, astiav.ErrEof) {
			return errEndOfStream
		}
		if !errors.Is(err, astiav.ErrEagain) {
			return fmt.Errorf("failed to receive frame: %w", err)
		}
		if d.flushed {
			return errEndOfStream
		}

		pkt, err := next()
		if err != nil {
			return err
		}
		if pkt == nil {
			// drain buffered frames
			d.flushed = true
			if err := d.codecCtx.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
				return fmt.Errorf("failed to flush decoder: %w", err)
			}
			continue
		}

		err = d.codecCtx.SendPacket(pkt)
		pkt.Free()
		if err != nil && !errors.Is(err, astiav.ErrEagain) {
			return fmt.Errorf("failed to send packet: %w", err)
		}
	}
}

func (d *decoder) close() {
	d.queue.free()
	if d.frame != nil {
		d.frame.Free()
		d.frame = nil
	}
	if d.codecCtx != nil {
		d.codecCtx.Free()
		d.codecCtx = nil
	}
}
