// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package core

import (
	"github.com/mapprotocol/compass-notary/pkg/msg"
)

// Chain is one side of a notarized chain pair as seen by NotaryMgr
type Chain interface {
	Id() msg.ChainId
	Name() string
	// Index is the global lock order, lower first
	Index() int
	// SetPeerChain is one-time wiring after both chains exist
	SetPeerChain(Chain) error
	// OnFastTimer and OnSlowTimer receive unix millis
	OnFastTimer(now int64)
	OnSlowTimer(now int64)
	Stop()
}

type ChainConfig struct {
	Name           string            // Human-readable chain name
	Type           string            // Rpc implementation
	Id             msg.ChainId       // ChainID
	Index          int               // Position in the registry, used for lock ordering
	Peer           msg.ChainId       // ChainID of the paired chain
	Endpoint       string            // url for rpc endpoint
	From           string            // address of key to use
	KeystorePath   string            // Location of key files
	BlockstorePath string            // Location of checkpoint store
	FreshStart     bool              // If true, checkpoints are ignored at start.
	Opts           map[string]string // Per chain options
}

// CreateChain builds a chain from its raw config; NotaryMgr calls it once per chain
type CreateChain func(cfg *ChainConfig) (Chain, error)
