// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package config

import (
	log "github.com/ChainSafe/log15"
	"github.com/urfave/cli/v2"
)

var (
	ConfigFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "JSON configuration file",
	}

	VerbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Supports levels crit (silent) to trce (trace)",
		Value: log.LvlInfo.String(),
	}

	KeystorePathFlag = &cli.StringFlag{
		Name:  "keystore",
		Usage: "Path to keystore directory",
		Value: DefaultKeystorePath,
	}

	BlockstorePathFlag = &cli.StringFlag{
		Name:  "blockstore",
		Usage: "Specify path for blockstore",
		Value: "", // Empty will use home dir
	}

	FreshStartFlag = &cli.BoolFlag{
		Name:  "fresh",
		Usage: "Disables loading checkpoints from blockstore at start.",
	}
)

// Timer flags, override the timer section of the config file
var (
	FastIntervalFlag = &cli.DurationFlag{
		Name:  "fast",
		Usage: "Interval of the proposal timer",
	}

	SlowIntervalFlag = &cli.DurationFlag{
		Name:  "slow",
		Usage: "Interval of the contract and error check timer",
	}
)

// Metrics flags
var (
	MetricsFlag = &cli.BoolFlag{
		Name:  "metrics",
		Usage: "Serves /metrics on the expose port",
	}
)

var (
	ExposePortFlag = &cli.IntFlag{
		Name:  "exposePort",
		Usage: "Port to serve health and proposal queries on, 0 disables it",
		Value: 8002,
	}
)
