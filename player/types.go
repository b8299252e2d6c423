package player

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// Kind identifies the stream a slot belongs to
type Kind int

const (
	KindAudio Kind = iota
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Flags control how the widget is laid out and how frames are sized
type Flags int

const (
	// FlagHFill stretches the widget horizontally
	FlagHFill Flags = 1 << iota
	// FlagVFill stretches the widget vertically
	FlagVFill
	// FlagKeepRatio preserves the source aspect ratio when sizing frames
	FlagKeepRatio
)

// Has reports whether all bits of f2 are set
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Action is a playback command accepted by SetAction
type Action int

const (
	ActionPlay Action = iota
	ActionPause
	ActionToggle
	ActionQuery
)

// State is the playback state of a Player
type State int

const (
	StateStopped State = iota
	StateLoaded
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateLoaded:
		return "Loaded"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// AudioFormat describes the PCM the audio device pulls: signed 16-bit
// little-endian, interleaved. Samples is the device frame size.
type AudioFormat struct {
	SampleRate int
	Channels   int
	Samples    int
}

// FrameBytes is the size of one device frame in bytes
func (f AudioFormat) FrameBytes() int {
	return f.Channels * f.Samples * 2
}

// Engine is the decode engine the player pulls frames from
type Engine interface {
	// Open opens and probes a media source
	Open(path string) (Stream, error)
}

// Stream is an open media source
type Stream interface {
	// SelectStream picks the index-th stream of the given kind
	SelectStream(kind Kind, index int) error

	// Valid reports whether a usable stream of kind is selected
	Valid(kind Kind) bool

	// Duration returns the total stream duration
	Duration() time.Duration

	// NativeSize returns the source video dimensions
	NativeSize() (w, h int)

	// AudioFormat returns the PCM layout PullFrame writes into audio slots
	AudioFormat() AudioFormat

	// PullFrame decodes one frame of kind into slot in place. It reports
	// false when no frame was ready; io.EOF marks the end of the stream.
	PullFrame(kind Kind, slot *Slot) (bool, error)

	// Close releases the source
	Close() error
}

// AudioDevice is the output device that drives the audio pull callback
type AudioDevice interface {
	// Open configures the device and installs pull. The device starts paused.
	Open(format AudioFormat, pull func(out []byte)) error

	// SetPaused suspends or resumes pull callbacks. It must not block.
	SetPaused(paused bool)

	// Close stops pull callbacks
	Close()
}

// Surface is where presented frames end up
type Surface interface {
	// DisplayOverlay shows an overlay frame immediately at dst
	DisplayOverlay(ov *Overlay, dst image.Rectangle) error

	// Blit draws a raw frame at dst
	Blit(img *image.RGBA, dst image.Rectangle) error

	// Fill clears area to black
	Fill(area image.Rectangle) error

	// Redraw asks the embedding to call Player.Draw soon. It must not block.
	Redraw()
}

const (
	// DefaultBufferSize is the ring depth used for both streams
	DefaultBufferSize = 10

	// DefaultAudioSamples is the device frame size in samples
	DefaultAudioSamples = 512

	// DefaultUnderrunBackoff is how long the driver sleeps on an empty slot
	DefaultUnderrunBackoff = 10 * time.Millisecond

	// DefaultMaxPullFailures is the run of failed pulls that gets a warning
	DefaultMaxPullFailures = 25

	// AudioSampleRate for resampling
	AudioSampleRate = 44100

	// Kitty image IDs
	VideoImageID = 1
)

var (
	// ErrOpen is returned when the decode engine cannot open a source
	ErrOpen = errors.New("open failed")

	// ErrAudioDevice is returned when the audio device cannot be opened
	ErrAudioDevice = errors.New("audio device failed")

	// ErrPresentationAlloc is returned when frame buffers cannot be allocated
	ErrPresentationAlloc = errors.New("presentation allocation failed")

	// ErrClosed is returned by operations on a closed player
	ErrClosed = errors.New("player closed")
)

// LoadError describes a failed Load
type LoadError struct {
	Path string
	Op   string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Stats is a snapshot of playback counters
type Stats struct {
	Presented      int64
	Skipped        int64
	VideoUnderruns int64
	AudioUnderruns int64
	PullFailures   int64
	LastPTS        time.Duration
	Sync           time.Duration

	// frames waiting in each ring
	AudioBuffered int
	VideoBuffered int
}
