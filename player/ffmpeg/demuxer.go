package ffmpeg

import (
	"errors"
	"fmt"
	"time"

	"github.com/asticode/go-astiav"
)

// demuxer handles opening media and reading packets
type demuxer struct {
	formatCtx *astiav.FormatContext
}

func openDemuxer(url string) (*demuxer, error) {
	d := &demuxer{}

	// Allocate format context
	d.formatCtx = astiav.AllocFormatContext()
	if d.formatCtx == nil {
		return nil, errors.New("failed to allocate format context")
	}

	// Open input (url is filepath)
	if err := d.formatCtx.OpenInput(url, nil, nil); err != nil {
		d.formatCtx.Free()
		return nil, fmt.Errorf("failed to open input: %w", err)
	}

	// Find stream info
	if err := d.formatCtx.FindStreamInfo(nil); err != nil {
		d.close()
		return nil, fmt.Errorf("failed to find stream info: %w", err)
	}

	return d, nil
}

// nthStream returns the index-th stream of the given media type
func (d *demuxer) nthStream(mt astiav.MediaType, index int) *astiav.Stream {
	n := 0
	for _, stream := range d.formatCtx.Streams() {
		if stream.CodecParameters().MediaType() != mt {
			continue
		}
		if n == index {
			return stream
		}
		n++
	}
	return nil
}

// duration of the container, zero when unknown
func (d *demuxer) duration() time.Duration {
	us := d.formatCtx.Duration()
	if us <= 0 {
		return 0
	}
	return time.Duration(us) * time.Microsecond
}

// readPacket reads the next packet. It returns astiav.ErrEof at the end of
// the input.
func (d *demuxer) readPacket() (*astiav.Packet, error) {
	pkt := astiav.AllocPacket()
	if pkt == nil {
		return nil, errors.New("failed to allocate packet")
	}

	if err := d.formatCtx.ReadFrame(pkt); err != nil {
		pkt.Free()
		return nil, err
	}
	return pkt, nil
}

func (d *demuxer) close() {
	if d.formatCtx != nil {
		d.formatCtx.CloseInput()
		d.formatCtx.Free()
		d.formatCtx = nil
	}
}

// packetQueue holds demuxed packets for one decoder until it asks for them
type packetQueue struct {
	pkts  []*astiav.Packet
	limit int
}

func (q *packetQueue) push(pkt *astiav.Packet) (dropped bool) {
	if len(q.pkts) >= q.limit {
		q.pkts[0].Free()
		q.pkts = q.pkts[1:]
		dropped = true
	}
	q.pkts = append(q.pkts, pkt)
	return dropped
}

func (q *packetQueue) pop() *astiav.Packet {
	if len(q.pkts) == 0 {
		return nil
	}
	pkt := q.pkts[0]
	q.pkts[0] = nil
	q.pkts = q.pkts[1:]
	return pkt
}

func (q *packetQueue) free() {
	for _, pkt := range q.pkts {
		pkt.Free()
	}
	q.pkts = nil
}

// toDuration converts a timestamp in tb units
func toDuration(ts int64, tb astiav.Rational) time.Duration {
	num, den := int64(tb.Num()), int64(tb.Den())
	if den == 0 {
		return 0
	}
	whole := ts * num / den
	rem := ts * num % den
	return time.Duration(whole)*time.Second + time.Duration(rem*int64(time.Second)/den)
}
