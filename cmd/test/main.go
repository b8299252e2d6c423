// Command test plays a generated test pattern, which needs no media file.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/njyeung/framesync/config"
	"github.com/njyeung/framesync/logging"
	"github.com/njyeung/framesync/player"
	"github.com/njyeung/framesync/player/speaker"
	"github.com/njyeung/framesync/tui"
	"github.com/spf13/pflag"
)

func main() {
	duration := pflag.Duration("duration", 30*time.Second, "length of the pattern")
	interval := pflag.Duration("interval", 40*time.Millisecond, "time between frames")
	tone := pflag.Float64("tone", 440, "tone frequency in Hz")
	noAudio := pflag.Bool("no-audio", false, "generate video only")
	slots := pflag.Int("slots", 10, "video ring depth")
	logFile := pflag.String("log-file", "", "write debug logs to this file")
	pflag.Parse()

	err := run(*duration, *interval, *tone, *noAudio, *slots, *logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(duration, interval time.Duration, tone float64, noAudio bool, slots int, logFile string) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	cfg.Player.NoAudio = noAudio
	cfg.Player.VideoBufferSize = slots
	cfg.Logging.Level = "debug"

	var out io.Writer = io.Discard
	if logFile != "" {
		f, err := tea.LogToFile(logFile, "test")
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	logger := logging.New(cfg.Logging, out)

	var device player.AudioDevice
	if !noAudio {
		if err := speaker.Init(player.AudioSampleRate); err != nil {
			logger.Warn("no audio output", "error", err)
		} else {
			device = speaker.New()
		}
	}

	return tui.Run(tui.RunOptions{
		Path:   "test pattern",
		Config: cfg,
		Engine: &player.SyntheticEngine{
			FrameInterval: interval,
			Duration:      duration,
			ToneHz:        tone,
			NoAudio:       noAudio,
		},
		Device: device,
		Logger: logger,
	})
}
