package tui

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/njyeung/framesync/config"
	"github.com/njyeung/framesync/player"
)

// RunOptions describes one TUI session
type RunOptions struct {
	Path   string
	Config *config.Config
	Engine player.Engine
	// Device may be nil to play without sound
	Device player.AudioDevice
	Logger *slog.Logger
}

// PlayerOptions maps player configuration onto player.Options
func PlayerOptions(c config.PlayerConfig) player.Options {
	var flags player.Flags
	if c.HFill {
		flags |= player.FlagHFill
	}
	if c.VFill {
		flags |= player.FlagVFill
	}
	if c.KeepRatio {
		flags |= player.FlagKeepRatio
	}

	return player.Options{
		Width:           c.Width,
		Height:          c.Height,
		Flags:           flags,
		Overlay:         c.Overlay,
		NoAudio:         c.NoAudio,
		AudioBufferSize: c.AudioBufferSize,
		VideoBufferSize: c.VideoBufferSize,
		AudioSamples:    c.AudioSamples,
		UnderrunBackoff: c.UnderrunBackoff,
		MaxPullFailures: c.MaxPullFailures,
	}
}

// Run plays o.Path full screen until the user quits
func Run(o RunOptions) error {
	surface := player.NewKittySurface(os.Stdout)

	opts := PlayerOptions(o.Config.Player)
	opts.Engine = o.Engine
	opts.Device = o.Device
	opts.Surface = surface
	opts.Logger = o.Logger

	p := player.New(opts)
	defer p.Close()

	m := NewModel(Config{
		Path:    o.Path,
		Player:  p,
		Surface: surface,
		Logger:  o.Logger,
	})

	prog := tea.NewProgram(m, tea.WithAltScreen())
	_, err := prog.Run()

	p.Close()
	if cerr := surface.Clear(); cerr != nil {
		o.Logger.Debug("clear surface", "error", cerr)
	}
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
