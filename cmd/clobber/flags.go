package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ragona/clobber/lib/config"
	"github.com/ragona/clobber/lib/core"
)

const (
	commandName    = "clobber"
	targetListSep  = ","
	defaultNetwork = "tcp"
	defaultWorkers = 100
	defaultRepeat  = 1
)

// TargetListValue is a flag.Value for a repeatable -target flag: each
// occurrence, or each comma-separated token within one occurrence, adds
// one candidate dial target.
type TargetListValue struct {
	Targets []core.Target
}

func (v *TargetListValue) String() string {
	n := len(v.Targets)
	tokens := make([]string, n)
	for i, t := range v.Targets {
		tokens[i] = t.Address
	}
	return strings.Join(tokens, targetListSep)
}

func (v *TargetListValue) Set(s string) error {
	tokens := strings.Split(s, targetListSep)
	for _, token := range tokens {
		host, port, err := net.SplitHostPort(token)
		if err != nil {
			return fmt.Errorf("expected target address of form host:port but got %s", token)
		}
		v.Targets = append(v.Targets, core.Target{
			Network: defaultNetwork,
			Address: net.JoinHostPort(host, port),
		})
	}
	return nil
}

// flagsResult bundles everything parsed off the command line that isn't
// part of config.Config itself.
type flagsResult struct {
	cfg         config.Config
	verbosity   int // 0=warn/error, 1=+info (-v), 2=+debug (-vv or -vvv; there is no level past debug)
	payloadFile string
	fuzz        bool
}

func newConfigFromFlags(argv []string) (flagsResult, error) {
	flagSet := flag.NewFlagSet(commandName, flag.ExitOnError)

	targetListVar := &TargetListValue{}

	var (
		workers        uint
		threads        uint
		rate           uint
		duration       time.Duration
		limit          uint
		repeat         uint
		connectTimeout time.Duration
		readTimeout    time.Duration
		payloadFile    string
		fuzz           bool
		verbose        bool
		veryVerbose    bool
		tripleVerbose  bool
	)

	flagSet.Var(
		targetListVar,
		"target",
		"dial target as host:port; may be repeated or comma-separated for multiple candidates")
	flagSet.UintVar(&workers, "connections", defaultWorkers, "total concurrent connection loops")
	flagSet.UintVar(&threads, "threads", 0, "OS thread count; 0 uses the host's logical CPU count")
	flagSet.UintVar(&rate, "rate", 0, "aggregate connections/sec ceiling; 0 disables pacing")
	flagSet.DurationVar(&duration, "duration", 0, "wall-clock run cap, e.g. 30s; 0 disables")
	flagSet.UintVar(&limit, "limit", 0, "total completed-connection cap across all workers; 0 disables")
	flagSet.UintVar(&repeat, "repeat", defaultRepeat, "write/read exchanges per established connection")
	flagSet.DurationVar(&connectTimeout, "connect-timeout", 5*time.Second, "per-dial timeout")
	flagSet.DurationVar(&readTimeout, "read-timeout", 5*time.Second, "per-read timeout")
	flagSet.StringVar(&payloadFile, "payload", "-", "file to read the request payload from; - means stdin")
	flagSet.BoolVar(&fuzz, "fuzz", false, "mutate the payload's first byte once per closed connection")
	flagSet.BoolVar(&verbose, "v", false, "log info-level events in addition to warnings and errors")
	flagSet.BoolVar(&veryVerbose, "vv", false, "log debug-level events as well (implies -v)")
	flagSet.BoolVar(&tripleVerbose, "vvv", false, "same as -vv; debug is the most detailed level offered")

	err := flagSet.Parse(argv[1:])
	if err != nil {
		return flagsResult{}, err
	}

	if len(targetListVar.Targets) == 0 {
		return flagsResult{}, errors.New("at least one -target is required")
	}

	cfg := config.NewBuilder(targetListVar.Targets[0]).
		Targets(targetListVar.Targets...).
		Workers(uint32(workers)).
		Threads(uint32(threads)).
		Rate(uint32(rate)).
		Duration(duration).
		Limit(uint32(limit)).
		Repeat(uint32(repeat)).
		ConnectTimeout(connectTimeout).
		ReadTimeout(readTimeout).
		Build()

	verbosity := 0
	if verbose {
		verbosity = 1
	}
	if veryVerbose || tripleVerbose {
		verbosity = 2
	}

	return flagsResult{
		cfg:         cfg,
		verbosity:   verbosity,
		payloadFile: payloadFile,
		fuzz:        fuzz,
	}, nil
}
