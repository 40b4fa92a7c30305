// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"os"
	"strconv"

	log "github.com/ChainSafe/log15"
	"github.com/joho/godotenv"
	"github.com/mapprotocol/compass-notary/config"
	"github.com/urfave/cli/v2"
)

var app = cli.NewApp()

var cliFlags = []cli.Flag{
	config.ConfigFileFlag,
	config.VerbosityFlag,
	config.KeystorePathFlag,
	config.BlockstorePathFlag,
	config.FreshStartFlag,
	config.FastIntervalFlag,
	config.SlowIntervalFlag,
	config.MetricsFlag,
	config.ExposePortFlag,
}

var runCommand = cli.Command{
	Name:        "run",
	Usage:       "run the notary",
	Description: "The run command votes proposals between every configured chain pair",
	Action:      run,
	Flags:       cliFlags,
}

var (
	Version = "0.1.0"
)

// init initializes CLI
func init() {
	app.Copyright = "Copyright 2021 MAP Protocol 2021 Authors"
	app.Name = "notary"
	app.Usage = "Cross-chain notary"
	app.Authors = []*cli.Author{{Name: "MAP Protocol 2021"}}
	app.Version = Version
	app.EnableBashCompletion = true
	app.Commands = []*cli.Command{
		&runCommand,
	}

	app.Flags = append(app.Flags, cliFlags...)
}

func main() {
	// a missing .env is fine, the environment may already be set
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("Load .env failed", "err", err)
	}
	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func startLogger(ctx *cli.Context) error {
	logger := log.Root()
	handler := logger.GetHandler()
	var lvl log.Lvl

	if lvlToInt, err := strconv.Atoi(ctx.String(config.VerbosityFlag.Name)); err == nil {
		lvl = log.Lvl(lvlToInt)
	} else if lvl, err = log.LvlFromString(ctx.String(config.VerbosityFlag.Name)); err != nil {
		return err
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, handler))

	return nil
}
