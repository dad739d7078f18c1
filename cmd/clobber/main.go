package main

import (
	"context"
	"io"
	"os"

	"github.com/ragona/clobber/lib/driver"
	"github.com/ragona/clobber/lib/mutator"
	"github.com/ragona/clobber/lib/slog"
)

func main() {
	logger := slog.GetDefaultLogger()

	flags, err := newConfigFromFlags(os.Args)
	if err != nil {
		logger.Error(&slog.LogRecord{Msg: "failed to parse flags", Error: err})
		os.Exit(2)
	}

	leveled := &slog.LeveledLogger{Inner: logger, Threshold: thresholdFor(flags.verbosity)}
	leveled.Info(&slog.LogRecord{Msg: "loaded config", Details: flags.cfg})

	if err := flags.cfg.Validate(); err != nil {
		leveled.Error(&slog.LogRecord{Msg: "configuration is invalid", Error: err})
		os.Exit(2)
	}

	payload, err := readPayload(flags.payloadFile)
	if err != nil {
		leveled.Error(&slog.LogRecord{Msg: "failed to read payload", Error: err})
		os.Exit(2)
	}

	opts := driver.Options{Logger: leveled}
	if flags.fuzz {
		opts.NewMutator = func(payload []byte) (mutator.Mutator, error) {
			return mutator.NewByteFlipMutator(mutator.NewSeed(payload)), nil
		}
	}

	report, err := driver.Run(context.Background(), flags.cfg, payload, opts)
	if err != nil {
		leveled.Error(&slog.LogRecord{Msg: "driver terminated abnormally", Error: err})
		os.Exit(1)
	}

	leveled.Info(&slog.LogRecord{Msg: "driver terminated normally", Details: report.Stats})
	os.Exit(0)
}

func thresholdFor(verbosity int) slog.Level {
	switch {
	case verbosity >= 2:
		return slog.LevelDebug
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}
