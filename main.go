package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/njyeung/framesync/config"
	"github.com/njyeung/framesync/logging"
	"github.com/njyeung/framesync/player"
	"github.com/njyeung/framesync/player/ffmpeg"
	"github.com/njyeung/framesync/player/speaker"
	"github.com/njyeung/framesync/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "framesync <file>",
		Short: "Play a video in the terminal with audio-synced frames",
		Long: `framesync decodes a media file with FFmpeg and shows it in a Kitty
graphics capable terminal. Video frames are timed against the audio
device; files without audio follow the wall clock.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), cfgFile)
			if err != nil {
				return err
			}
			return run(args[0], cfg)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.framesync.yaml)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("log-file", "", "write logs to this file")
	cmd.Flags().Bool("keep-ratio", true, "preserve the source aspect ratio")
	cmd.Flags().Bool("overlay", false, "present YCbCr overlay frames")
	cmd.Flags().Bool("no-audio", false, "ignore audio and follow the wall clock")

	return cmd
}

// flagKeys maps flags to the config keys they override
var flagKeys = map[string]string{
	"log-level":  "logging.level",
	"log-file":   "logging.file",
	"keep-ratio": "player.keep_ratio",
	"overlay":    "player.overlay",
	"no-audio":   "player.no_audio",
}

// loadConfig reads file, env and defaults, then applies flags the user set.
// Unset flags keep the config/env values.
func loadConfig(flags *pflag.FlagSet, cfgFile string) (*config.Config, error) {
	v := viper.New()
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		val := f.Value.String()
		if f.Name == "log-level" {
			val = strings.ToLower(val)
		}
		v.Set(key, val)
	})

	cfg, err := config.LoadWith(v, cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func run(path string, cfg *config.Config) error {
	// the screen belongs to bubbletea, so logs only go to a file
	var out io.Writer = io.Discard
	if cfg.Logging.File != "" {
		f, err := tea.LogToFile(cfg.Logging.File, "framesync")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	logger := logging.New(cfg.Logging, out)
	slog.SetDefault(logger)

	var device player.AudioDevice
	if !cfg.Player.NoAudio {
		// Initialize speaker at startup to trigger audio permission prompts early
		if err := speaker.Init(player.AudioSampleRate); err != nil {
			logger.Warn("no audio output, playing without sound", "error", err)
		} else {
			device = speaker.New()
		}
	}

	return tui.Run(tui.RunOptions{
		Path:   path,
		Config: cfg,
		Engine: &ffmpeg.Engine{Logger: logger},
		Device: device,
		Logger: logger,
	})
}
