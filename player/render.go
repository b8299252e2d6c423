package player

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"io"
	"sync"
)

// KittySurface presents frames using Kitty's graphics protocol
type KittySurface struct {
	mu sync.Mutex

	out     io.Writer
	imageID int
	shown   bool

	// Terminal dimensions in cells and pixels
	termCols     int
	termRows     int
	termWidthPx  int
	termHeightPx int

	// overlay frames are converted here before transmission
	scratch *image.RGBA
	buf     bytes.Buffer

	redraw func()
}

// NewKittySurface creates a surface writing to out
func NewKittySurface(out io.Writer) *KittySurface {
	return &KittySurface{
		out:     out,
		imageID: VideoImageID,
	}
}

// SetOutput changes the output writer
func (r *KittySurface) SetOutput(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = w
}

// SetTerminalSize sets the terminal dimensions (cells and pixels)
func (r *KittySurface) SetTerminalSize(cols, rows, widthPx, heightPx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.termCols = cols
	r.termRows = rows
	r.termWidthPx = widthPx
	r.termHeightPx = heightPx
}

// SetRedrawFunc installs the hook Redraw calls. fn must not block.
func (r *KittySurface) SetRedrawFunc(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redraw = fn
}

// Redraw asks the embedding to repaint
func (r *KittySurface) Redraw() {
	r.mu.Lock()
	fn := r.redraw
	r.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// DisplayOverlay converts the overlay to RGBA and shows it immediately
func (r *KittySurface) DisplayOverlay(ov *Overlay, dst image.Rectangle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := ov.Img.Rect
	if r.scratch == nil || r.scratch.Rect != b {
		r.scratch = image.NewRGBA(b)
	}
	draw.Draw(r.scratch, b, ov.Img, b.Min, draw.Src)

	return r.transmitLocked(r.scratch.Pix, b.Dx(), b.Dy(), dst)
}

// Blit shows an RGBA frame at dst
func (r *KittySurface) Blit(img *image.RGBA, dst image.Rectangle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.transmitLocked(img.Pix, img.Rect.Dx(), img.Rect.Dy(), dst)
}

// Fill removes the displayed frame so the terminal background shows around
// the next one
func (r *KittySurface) Fill(area image.Rectangle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.shown {
		return nil
	}
	r.shown = false
	_, err := fmt.Fprintf(r.out, "\x1b_Ga=d,d=i,i=%d,q=2\x1b\\", r.imageID)
	return err
}

// cellPosition maps a pixel position to a 1-indexed (row, col)
func (r *KittySurface) cellPosition(pt image.Point) (row, col int) {
	if r.termCols == 0 || r.termRows == 0 || r.termWidthPx == 0 || r.termHeightPx == 0 {
		return 1, 1
	}

	cellW := r.termWidthPx / r.termCols
	cellH := r.termHeightPx / r.termRows
	if cellW == 0 || cellH == 0 {
		return 1, 1
	}

	row = max(pt.Y/cellH+1, 1)
	col = max(pt.X/cellW+1, 1)
	return row, col
}

// transmitLocked writes an RGBA image with the Kitty graphics protocol
func (r *KittySurface) transmitLocked(rgba []byte, width, height int, dst image.Rectangle) error {
	// Buffer the entire frame to write atomically
	buf := &r.buf
	buf.Reset()

	// Begin synchronized update
	buf.WriteString("\x1b[?2026h")

	// Save cursor position
	buf.WriteString("\x1b7")

	// Delete previous image first
	if r.shown {
		fmt.Fprintf(buf, "\x1b_Ga=d,d=i,i=%d,q=2\x1b\\", r.imageID)
	}

	row, col := r.cellPosition(dst.Min)
	fmt.Fprintf(buf, "\x1b[%d;%dH", row, col)

	// Kitty graphics protocol:
	// ESC_G<key>=<value>,...;<base64 data>ESC\
	//
	// Keys:
	//   a=T - action: transmit and display
	//   f=32 - format: 32-bit RGBA
	//   s=W - width in pixels
	//   v=H - height in pixels
	//   i=ID - image ID for updates
	//   q=2 - quiet mode (suppress responses)
	encoded := base64.StdEncoding.EncodeToString(rgba)

	// Split data into chunks (max 4096 bytes per chunk)
	const chunkSize = 4096

	first := true
	for len(encoded) > 0 {
		chunk := encoded
		more := 0

		if len(chunk) > chunkSize {
			chunk = encoded[:chunkSize]
			encoded = encoded[chunkSize:]
			more = 1
		} else {
			encoded = ""
		}

		if first {
			fmt.Fprintf(buf, "\x1b_Ga=T,f=32,s=%d,v=%d,i=%d,q=2,m=%d;%s\x1b\\",
				width, height, r.imageID, more, chunk)
			first = false
		} else {
			fmt.Fprintf(buf, "\x1b_Gm=%d;%s\x1b\\", more, chunk)
		}
	}

	// Restore cursor position
	buf.WriteString("\x1b8")

	// End synchronized update
	buf.WriteString("\x1b[?2026l")

	r.shown = true
	_, err := r.out.Write(buf.Bytes())
	return err
}

// Clear deletes the frame from the terminal
func (r *KittySurface) Clear() error {
	return r.Fill(image.Rectangle{})
}
