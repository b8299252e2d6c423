package player

import (
	"image"
	"os"

	"golang.org/x/sys/unix"
)

// GetTerminalSize returns terminal dimensions (cols, rows, widthPx, heightPx)
func GetTerminalSize() (cols, rows, widthPx, heightPx int, err error) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return int(ws.Col), int(ws.Row), int(ws.Xpixel), int(ws.Ypixel), nil
}

// CellSize returns the pixel size of one terminal cell, or ok=false when the
// terminal does not report pixel dimensions
func CellSize(cols, rows, widthPx, heightPx int) (w, h int, ok bool) {
	if cols == 0 || rows == 0 || widthPx == 0 || heightPx == 0 {
		return 0, 0, false
	}
	return widthPx / cols, heightPx / rows, true
}

// CellArea converts a cell rectangle (0-indexed cols and rows) to pixels
func CellArea(cells image.Rectangle, cellW, cellH int) image.Rectangle {
	return image.Rect(
		cells.Min.X*cellW, cells.Min.Y*cellH,
		cells.Max.X*cellW, cells.Max.Y*cellH,
	)
}
