// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/fileshare/lib/config"
	"github.com/bureau-foundation/fileshare/lib/identity"
	"github.com/bureau-foundation/fileshare/lib/instancelock"
	"github.com/bureau-foundation/fileshare/lib/process"
	"github.com/bureau-foundation/fileshare/lib/session"
	"github.com/bureau-foundation/fileshare/lib/version"
	"github.com/bureau-foundation/fileshare/lib/watch"
)

const closeTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

type options struct {
	configPath  string
	folder      string
	participant string
	window      string
	stateKind   string
	offline     bool
	logFormat   string
}

func run() error {
	var flags options
	flagSet := pflag.NewFlagSet("fileshare", pflag.ContinueOnError)
	flagSet.StringVar(&flags.configPath, "config", "", "path to config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&flags.folder, "folder", "", "shared folder (overrides config)")
	flagSet.StringVar(&flags.participant, "participant", "", "participant ID (default: hostname)")
	flagSet.StringVar(&flags.window, "window", "", "window name, for several sessions of one participant")
	flagSet.StringVar(&flags.stateKind, "state", stateGrowSet, "state type: gset or automerge")
	flagSet.BoolVar(&flags.offline, "offline", false, "start disconnected")
	flagSet.StringVar(&flags.logFormat, "log-format", "", "json or text (overrides config)")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match other fileshare binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("fileshare")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(flagSet, flags)
	if err != nil {
		return err
	}

	level, _ := cfg.LogLevel()
	logger, err := process.NewLogger(os.Stderr, cfg.Log.Format, level)
	if err != nil {
		return err
	}

	participant, lock, err := prepare(cfg)
	if err != nil {
		return err
	}
	defer lock.Release()

	replicated, err := newState(flags.stateKind)
	if err != nil {
		return err
	}
	compression, _ := cfg.Compression()

	ctx, stop := process.SignalContext(context.Background())
	defer stop()

	sess, err := session.Open(ctx, session.Config{
		Folder:        cfg.Folder,
		ParticipantID: participant,
		Window:        cfg.Participant.Window,
		State:         replicated,
		SaveInterval:  cfg.Save.Interval,
		Watch: watch.Options{
			StabilityThreshold: cfg.Watch.StabilityThreshold,
			PollInterval:       cfg.Watch.PollInterval,
		},
		Compression: compression,
		OpenWith:    version.OpenWith(),
		Offline:     flags.offline,
		Logger:      logger,
		OnSaveError: func(err error) {
			fmt.Fprintf(os.Stderr, "warning: save failed, will retry: %v\n", err)
		},
	})
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	sh := &shell{session: sess, kind: flags.stateKind, out: os.Stdout}
	replErr := sh.run(ctx, bufio.NewScanner(os.Stdin), interactive)

	closeContext, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := sess.Close(closeContext); err != nil {
		return err
	}
	logger.Info("exiting", "participant", participant)
	return replErr
}

// loadConfig reads the config file (from --config, else
// FILESHARE_CONFIG, else defaults), applies flag overrides, and
// validates the result.
// prepare creates the state directory, resolves the participant ID, and
// takes the lock for this participant and window.
func prepare(cfg *config.Config) (string, *instancelock.Lock, error) {
	if err := cfg.EnsurePaths(); err != nil {
		return "", nil, err
	}

	participant, err := identity.Resolve(identity.Options{
		Override: cfg.Participant.ID,
		StateDir: cfg.StateDir,
	})
	if err != nil {
		return "", nil, fmt.Errorf("resolving participant ID: %w", err)
	}

	lockName := participant
	if cfg.Participant.Window != "" {
		lockName += "-" + cfg.Participant.Window
	}
	lock, err := instancelock.Acquire(cfg.StateDir, lockName)
	if err != nil {
		return "", nil, err
	}
	return participant, lock, nil
}

func loadConfig(flagSet *pflag.FlagSet, flags options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case flags.configPath != "":
		cfg, err = config.LoadFile(flags.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if flagSet.Changed("folder") {
		cfg.Folder = flags.folder
	}
	if flagSet.Changed("participant") {
		cfg.Participant.ID = flags.participant
	}
	if flagSet.Changed("window") {
		cfg.Participant.Window = flags.window
	}
	if flagSet.Changed("log-format") {
		cfg.Log.Format = flags.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `fileshare: replicate state through a shared folder.

Reads commands from stdin: add, set, show, offline, online, status, quit.

Usage:
  fileshare [flags]

Examples:
  # Share a grocery list through a Dropbox folder
  fileshare --folder ~/Dropbox/groceries

  # A second window of the same participant
  fileshare --folder ~/Dropbox/groceries --window 2

  # An automerge document, starting offline
  fileshare --folder ~/Dropbox/notes --state automerge --offline

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
