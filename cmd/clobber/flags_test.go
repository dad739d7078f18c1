package main

import (
	"testing"

	"github.com/ragona/clobber/lib/core"
	"github.com/stretchr/testify/require"
)

func TestTargetListValueErrorHelp(t *testing.T) {
	v := &TargetListValue{
		Targets: make([]core.Target, 0),
	}
	err := v.Set("localhost:443,127.*.*.*,127.0.0.1:9021")
	require.Error(t, err)
	require.Equal(t, "expected target address of form host:port but got 127.*.*.*", err.Error())
}

func TestTargetListValueMultipleTargets(t *testing.T) {
	v := &TargetListValue{}
	require.NoError(t, v.Set("localhost:443,127.0.0.1:9021"))
	require.Len(t, v.Targets, 2)
	require.Equal(t, "tcp", v.Targets[0].Network)
	require.Equal(t, "localhost:443", v.Targets[0].Address)
	require.Equal(t, "127.0.0.1:9021", v.Targets[1].Address)
}

func TestNewConfigFromFlags_RequiresAtLeastOneTarget(t *testing.T) {
	_, err := newConfigFromFlags([]string{"clobber"})
	require.Error(t, err)
}

func TestNewConfigFromFlags_BuildsConfig(t *testing.T) {
	argv := []string{
		"clobber",
		"-target", "127.0.0.1:9000",
		"-connections", "50",
		"-threads", "4",
		"-rate", "10",
		"-limit", "100",
		"-repeat", "2",
	}
	flags, err := newConfigFromFlags(argv)
	require.NoError(t, err)
	require.Equal(t, uint32(50), flags.cfg.Workers)
	require.Equal(t, uint32(4), flags.cfg.Threads)
	require.Equal(t, uint32(10), flags.cfg.Rate)
	require.Equal(t, uint32(100), flags.cfg.Limit)
	require.Equal(t, uint32(2), flags.cfg.Repeat)
	require.Equal(t, 0, flags.verbosity)
}

func TestNewConfigFromFlags_Verbosity(t *testing.T) {
	flags, err := newConfigFromFlags([]string{"clobber", "-target", "127.0.0.1:9000", "-vv"})
	require.NoError(t, err)
	require.Equal(t, 2, flags.verbosity)
}
