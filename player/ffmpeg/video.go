package ffmpeg

import (
	"fmt"
	"image"

	"github.com/asticode/go-astiav"
	"github.com/njyeung/framesync/player"
)

// scaler converts decoded frames to the size and pixel format of a slot
type scaler struct {
	swsCtx *astiav.SoftwareScaleContext
	dst    *astiav.Frame

	srcW, srcH int
	srcFmt     astiav.PixelFormat
	dstW, dstH int
	dstFmt     astiav.PixelFormat
}

func newScaler() *scaler {
	return &scaler{dst: astiav.AllocFrame()}
}

// ensure recreates the scaling context when either side changes
func (s *scaler) ensure(src *astiav.Frame, dstW, dstH int, dstFmt astiav.PixelFormat) error {
	if s.swsCtx != nil &&
		s.srcW == src.Width() && s.srcH == src.Height() && s.srcFmt == src.PixelFormat() &&
		s.dstW == dstW && s.dstH == dstH && s.dstFmt == dstFmt {
		return nil
	}

	if s.swsCtx != nil {
		s.swsCtx.Free()
		s.swsCtx = nil
	}

	var err error
	s.swsCtx, err = astiav.CreateSoftwareScaleContext(
		src.Width(), src.Height(), src.PixelFormat(),
		dstW, dstH, dstFmt,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
	)
	if err != nil {
		return fmt.Errorf("failed to create sws context: %w", err)
	}

	s.dst.Unref()
	s.dst.SetWidth(dstW)
	s.dst.SetHeight(dstH)
	s.dst.SetPixelFormat(dstFmt)
	if err := s.dst.AllocBuffer(1); err != nil {
		return fmt.Errorf("failed to allocate frame buffer: %w", err)
	}

	s.srcW, s.srcH, s.srcFmt = src.Width(), src.Height(), src.PixelFormat()
	s.dstW, s.dstH, s.dstFmt = dstW, dstH, dstFmt
	return nil
}

// scaleInto writes src into the payload of slot
func (s *scaler) scaleInto(src *astiav.Frame, payload player.VideoPayload) error {
	b := payload.Bounds()

	dstFmt := astiav.PixelFormatRgba
	if _, ok := payload.(*player.Overlay); ok {
		dstFmt = astiav.PixelFormatYuv420P
	}
	if err := s.ensure(src, b.Dx(), b.Dy(), dstFmt); err != nil {
		return err
	}

	if err := s.swsCtx.ScaleFrame(src, s.dst); err != nil {
		return fmt.Errorf("failed to scale frame: %w", err)
	}

	buf, err := s.dst.Data().Bytes(1)
	if err != nil {
		return fmt.Errorf("failed to get frame bytes: %w", err)
	}

	switch p := payload.(type) {
	case *player.RawSurface:
		copy(p.Img.Pix, buf)
	case *player.Overlay:
		copyPlanes(p.Img, buf)
	}
	return nil
}

// copyPlanes splits a packed YUV420P buffer into img
func copyPlanes(img *image.YCbCr, buf []byte) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	ySize := w * h
	cSize := ((w + 1) / 2) * ((h + 1) / 2)
	if len(buf) < ySize+2*cSize {
		return
	}
	copy(img.Y, buf[:ySize])
	copy(img.Cb, buf[ySize:ySize+cSize])
	copy(img.Cr, buf[ySize+cSize:ySize+2*cSize])
}

func (s *scaler) close() {
	if s.dst != nil {
		s.dst.Free()
		s.dst = nil
	}
	if s.swsCtx != nil {
		s.swsCtx.Free()
		s.swsCtx = nil
	}
}
