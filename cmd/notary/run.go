// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	log "github.com/ChainSafe/log15"
	"github.com/mapprotocol/compass-notary/config"
	"github.com/mapprotocol/compass-notary/core"
	"github.com/mapprotocol/compass-notary/internal/chain"
	"github.com/mapprotocol/compass-notary/internal/expose"
	"github.com/mapprotocol/compass-notary/internal/metrics"
	"github.com/mapprotocol/compass-notary/internal/notary"
	"github.com/mapprotocol/compass-notary/internal/report"
	"github.com/mapprotocol/compass-notary/pkg/msg"
	"github.com/mapprotocol/compass-notary/pkg/redis"
	"github.com/mapprotocol/compass-notary/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

func run(ctx *cli.Context) error {
	err := startLogger(ctx)
	if err != nil {
		return err
	}
	log.Info("Starting Notary...")

	cfg, err := config.GetConfig(ctx)
	if err != nil {
		return err
	}
	util.Init(cfg.Other.Env, cfg.Other.MonitorUrl)

	chainCfgs, err := buildChainConfigs(ctx, cfg)
	if err != nil {
		return err
	}

	fast, slow, err := cfg.Timer.Intervals()
	if err != nil {
		return err
	}
	if v := ctx.Duration(config.FastIntervalFlag.Name); v > 0 {
		fast = v
	}
	if v := ctx.Duration(config.SlowIntervalFlag.Name); v > 0 {
		slow = v
	}

	var reporter notary.Reporter
	if cfg.Other.Redis != "" {
		if err = redis.Init(ctx.Context, cfg.Other.Redis); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		r := report.New(redis.GetClient(), report.ListKey)
		r.Start()
		defer r.Stop()
		reporter = r
	}

	var gatherer prometheus.Gatherer
	if ctx.Bool(config.MetricsFlag.Name) {
		reg := prometheus.NewRegistry()
		if err = metrics.Register(reg); err != nil {
			return err
		}
		gatherer = reg
	}

	sysErr := make(chan error, 1)
	mgr := core.NewNotaryMgr(chainCfgs, newChain(reporter), fast, slow, sysErr)
	if err = mgr.Initialize(); err != nil {
		return err
	}

	if port := ctx.Int(config.ExposePortFlag.Name); port > 0 {
		e := expose.New(mgr, 3*fastOrDefault(fast))
		e.Start(port, gatherer, sysErr)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = e.Stop(sctx)
		}()
	}

	mgr.Start()
	return nil
}

// newChain picks the chain implementation by config type
func newChain(reporter notary.Reporter) core.CreateChain {
	evm := chain.NewFactory(reporter)
	return func(cfg *core.ChainConfig) (core.Chain, error) {
		switch cfg.Type {
		case config.DefaultChainType:
			return evm(cfg)
		default:
			return nil, fmt.Errorf("unrecognized chain type %q for chain %s", cfg.Type, cfg.Name)
		}
	}
}

func buildChainConfigs(ctx *cli.Context, cfg *config.Config) ([]*core.ChainConfig, error) {
	ret := make([]*core.ChainConfig, 0, len(cfg.Chains))
	for idx, c := range cfg.Chains {
		id, err := msg.ParseChainId(c.Id)
		if err != nil {
			return nil, fmt.Errorf("chain %s id: %w", c.Name, err)
		}
		peer, err := msg.ParseChainId(c.Peer)
		if err != nil {
			return nil, fmt.Errorf("chain %s peer: %w", c.Name, err)
		}
		ks := c.KeystorePath
		if ks == "" {
			ks = filepath.Join(ctx.String(config.KeystorePathFlag.Name), c.From+".json")
		}
		ret = append(ret, &core.ChainConfig{
			Name:           c.Name,
			Type:           c.Type,
			Id:             id,
			Index:          idx,
			Peer:           peer,
			Endpoint:       c.Endpoint,
			From:           c.From,
			KeystorePath:   ks,
			BlockstorePath: ctx.String(config.BlockstorePathFlag.Name),
			FreshStart:     ctx.Bool(config.FreshStartFlag.Name),
			Opts:           c.Opts,
		})
	}
	return ret, nil
}

func fastOrDefault(fast time.Duration) time.Duration {
	if fast <= 0 {
		return core.DefaultFastInterval
	}
	return fast
}
