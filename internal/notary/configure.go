// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package notary

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mapprotocol/compass-notary/core"
	"github.com/mapprotocol/compass-notary/pkg/msg"
)

const (
	DefaultErrorThreshold     = 3
	DefaultNotaryListCapacity = MaxNotaryListCapacity
	DefaultTxHistorySize      = 1024
	DefaultMaxBatch           = 16
	DefaultTxTimeout          = 5 * time.Minute
	DefaultRpcTimeout         = 10 * time.Second
)

// Chain specific options
var (
	ErrorThresholdOpt   = "errorThreshold"
	NotaryCapacityOpt   = "notaryCapacity"
	ExpectedNotariesOpt = "expectedNotaries"
	TxHistorySizeOpt    = "txHistorySize"
	MaxBatchOpt         = "maxBatch"
	TxTimeoutOpt        = "txTimeout"
	RpcTimeoutOpt       = "rpcTimeout"
)

// ChainConfigure is the immutable per-chain setting shared by reference
type ChainConfigure struct {
	Name               string
	Id                 msg.ChainId
	Index              int // lock order
	Peer               msg.ChainId
	ErrorThreshold     int // consecutive failures that trigger a reset
	NotaryListCapacity int
	ExpectedNotaries   int
	TxHistorySize      int
	MaxBatch           int // votes built per type per tick
	TxTimeout          time.Duration
	RpcTimeout         time.Duration
}

// ParseConfigure uses a core.ChainConfig to construct a corresponding ChainConfigure
func ParseConfigure(chainCfg *core.ChainConfig) (*ChainConfigure, error) {
	cfg := &ChainConfigure{
		Name:               chainCfg.Name,
		Id:                 chainCfg.Id,
		Index:              chainCfg.Index,
		Peer:               chainCfg.Peer,
		ErrorThreshold:     DefaultErrorThreshold,
		NotaryListCapacity: DefaultNotaryListCapacity,
		TxHistorySize:      DefaultTxHistorySize,
		MaxBatch:           DefaultMaxBatch,
		TxTimeout:          DefaultTxTimeout,
		RpcTimeout:         DefaultRpcTimeout,
	}

	var err error
	if cfg.ErrorThreshold, err = intOpt(chainCfg.Opts, ErrorThresholdOpt, cfg.ErrorThreshold); err != nil {
		return nil, err
	}
	if cfg.NotaryListCapacity, err = intOpt(chainCfg.Opts, NotaryCapacityOpt, cfg.NotaryListCapacity); err != nil {
		return nil, err
	}
	if cfg.ExpectedNotaries, err = intOpt(chainCfg.Opts, ExpectedNotariesOpt, 0); err != nil {
		return nil, err
	}
	if cfg.TxHistorySize, err = intOpt(chainCfg.Opts, TxHistorySizeOpt, cfg.TxHistorySize); err != nil {
		return nil, err
	}
	if cfg.MaxBatch, err = intOpt(chainCfg.Opts, MaxBatchOpt, cfg.MaxBatch); err != nil {
		return nil, err
	}
	if cfg.TxTimeout, err = durationOpt(chainCfg.Opts, TxTimeoutOpt, cfg.TxTimeout); err != nil {
		return nil, err
	}
	if cfg.RpcTimeout, err = durationOpt(chainCfg.Opts, RpcTimeoutOpt, cfg.RpcTimeout); err != nil {
		return nil, err
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ChainConfigure) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: chain %d has no name", ErrInvalidConfigure, c.Id)
	}
	if c.Peer == c.Id {
		return fmt.Errorf("%w: chain %s is its own peer", ErrInvalidConfigure, c.Name)
	}
	if c.ErrorThreshold < 1 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfigure, ErrorThresholdOpt, c.ErrorThreshold)
	}
	if c.NotaryListCapacity < 1 || c.NotaryListCapacity > MaxNotaryListCapacity {
		return fmt.Errorf("%w: %s %d out of range (1..%d)", ErrInvalidConfigure, NotaryCapacityOpt, c.NotaryListCapacity, MaxNotaryListCapacity)
	}
	if c.ExpectedNotaries < 0 || c.ExpectedNotaries > c.NotaryListCapacity {
		return fmt.Errorf("%w: %d expected notaries, capacity %d", ErrNotaryListOverflow, c.ExpectedNotaries, c.NotaryListCapacity)
	}
	if c.MaxBatch < 1 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfigure, MaxBatchOpt, c.MaxBatch)
	}
	// one batch per proposal type may settle into the history between polls
	if c.TxHistorySize < 2*c.MaxBatch {
		return fmt.Errorf("%w: %s %d below twice %s %d", ErrInvalidConfigure, TxHistorySizeOpt, c.TxHistorySize, MaxBatchOpt, c.MaxBatch)
	}
	if c.TxTimeout <= 0 || c.RpcTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfigure)
	}
	return nil
}

func intOpt(opts map[string]string, key string, def int) (int, error) {
	v, ok := opts[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: unable to parse %s %q", ErrInvalidConfigure, key, v)
	}
	return n, nil
}

func durationOpt(opts map[string]string, key string, def time.Duration) (time.Duration, error) {
	v, ok := opts[key]
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: unable to parse %s %q", ErrInvalidConfigure, key, v)
	}
	return d, nil
}
