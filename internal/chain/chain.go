package chain

import (
	"context"
	"strings"
	"time"

	"github.com/ChainSafe/chainbridge-utils/crypto/secp256k1"
	"github.com/ChainSafe/log15"
	"github.com/mapprotocol/compass-notary/core"
	"github.com/mapprotocol/compass-notary/internal/metrics"
	"github.com/mapprotocol/compass-notary/internal/notary"
	"github.com/mapprotocol/compass-notary/pkg/blockstore"
	"github.com/mapprotocol/compass-notary/pkg/keystore"
	"github.com/pkg/errors"
)

const (
	RoleOfOutbound = "outbound"
	RoleOfInbound  = "inbound"

	connectTimeout = 30 * time.Second
)

// New builds a notary chain backed by an EVM notary contract
func New(chainCfg *core.ChainConfig, reporter notary.Reporter) (*notary.ChainObj, error) {
	configure, err := notary.ParseConfigure(chainCfg)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(chainCfg)
	if err != nil {
		return nil, err
	}
	logger := log15.Root().New("chain", cfg.Name)

	key, err := keystore.KeypairFromEth(cfg.KeystorePath)
	if err != nil {
		return nil, err
	}
	kp := secp256k1.NewKeypair(*key.PrivateKey)
	if cfg.From != "" && !strings.EqualFold(cfg.From, kp.Address()) {
		return nil, errors.Errorf("keystore %s holds %s, config expects %s", cfg.KeystorePath, kp.Address(), cfg.From)
	}

	sendStore, recvStore, err := SetupBlockStore(cfg, kp.Address())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	conn := NewConnection(cfg.Endpoint, kp, logger)
	if err = conn.Connect(ctx); err != nil {
		return nil, err
	}
	if err = conn.EnsureHasBytecode(ctx, cfg.NotaryContract); err != nil {
		conn.Close()
		return nil, err
	}

	rpc, err := NewRpc(cfg, conn, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}

	opts := []notary.Option{
		notary.WithLogger(logger),
		notary.WithCheckpoint(sendStore, recvStore, cfg.FreshStart),
		notary.WithMetrics(metrics.NewChainMetrics(cfg.Name)),
	}
	if reporter != nil {
		opts = append(opts, notary.WithReporter(reporter))
	}
	obj, err := notary.NewChainObj(configure, rpc, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return obj, nil
}

// SetupBlockStore opens the checkpoint stores of both proposal directions
func SetupBlockStore(cfg *Config, relayer string) (*blockstore.Blockstore, *blockstore.Blockstore, error) {
	send, err := blockstore.NewBlockstore(cfg.BlockstorePath, cfg.Id, relayer, RoleOfOutbound)
	if err != nil {
		return nil, nil, err
	}
	recv, err := blockstore.NewBlockstore(cfg.BlockstorePath, cfg.Id, relayer, RoleOfInbound)
	if err != nil {
		return nil, nil, err
	}
	return send, recv, nil
}

// NewFactory returns the core.CreateChain used by NotaryMgr
func NewFactory(reporter notary.Reporter) core.CreateChain {
	return func(cfg *core.ChainConfig) (core.Chain, error) {
		obj, err := New(cfg, reporter)
		if err != nil {
			return nil, err
		}
		return obj, nil
	}
}
