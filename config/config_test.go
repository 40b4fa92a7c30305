// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const sample = `{
  "chains": [
    {"name": "map", "id": "22776", "peer": "56", "endpoint": "http://localhost:7445",
     "from": "0xff93B45308FD417dF303D6515aB04D9e89a750Ca", "opts": {"notary": "0x1111111111111111111111111111111111111111"}},
    {"name": "bsc", "type": "ethereum", "id": "56", "peer": "22776", "endpoint": "http://localhost:8545"}
  ],
  "timer": {"fast": "2s", "slow": "20s"},
  "other": {"env": "test", "redis": "redis://localhost:6379/0"}
}`

func writeConfig(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func cliContext(t *testing.T, path string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String(ConfigFileFlag.Name, "", "")
	require.NoError(t, set.Parse([]string{"--" + ConfigFileFlag.Name, path}))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestGetConfig(t *testing.T) {
	cfg, err := GetConfig(cliContext(t, writeConfig(t, "config.json", sample)))
	require.NoError(t, err)
	require.Len(t, cfg.Chains, 2)
	require.Equal(t, DefaultChainType, cfg.Chains[0].Type)
	require.Equal(t, "0x1111111111111111111111111111111111111111", cfg.Chains[0].Opts["notary"])
	require.NotNil(t, cfg.Chains[1].Opts)
	require.Equal(t, "redis://localhost:6379/0", cfg.Other.Redis)

	fast, slow, err := cfg.Timer.Intervals()
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, fast)
	require.Equal(t, 20*time.Second, slow)
}

func TestGetConfigRejects(t *testing.T) {
	cases := map[string]string{
		"single chain": `{"chains": [{"name": "map", "id": "1", "peer": "2", "endpoint": "x"}]}`,
		"missing peer": `{"chains": [{"name": "a", "id": "1", "endpoint": "x"}, {"name": "b", "id": "2", "peer": "1", "endpoint": "y"}]}`,
		"missing name": `{"chains": [{"id": "1", "peer": "2", "endpoint": "x"}, {"name": "b", "id": "2", "peer": "1", "endpoint": "y"}]}`,
		"bad timer":    `{"chains": [{"name": "a", "id": "1", "peer": "2", "endpoint": "x"}, {"name": "b", "id": "2", "peer": "1", "endpoint": "y"}], "timer": {"fast": "soon"}}`,
		"missing url":  `{"chains": [{"name": "a", "id": "1", "peer": "2"}, {"name": "b", "id": "2", "peer": "1", "endpoint": "y"}]}`,
		"invalid json": `{"chains": [`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := GetConfig(cliContext(t, writeConfig(t, "config.json", content)))
			require.Error(t, err)
		})
	}

	_, err := GetConfig(cliContext(t, writeConfig(t, "config.yaml", sample)))
	require.Error(t, err)
}
