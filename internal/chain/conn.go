package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ChainSafe/chainbridge-utils/crypto/secp256k1"
	"github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/mapprotocol/compass-notary/pkg/contract"
)

// Backend is the part of *ethclient.Client the notary uses
type Backend interface {
	contract.Caller
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

type Connection struct {
	endpoint string
	kp       *secp256k1.Keypair
	client   Backend
	log      log15.Logger

	nonceLock sync.Mutex
	nextNonce uint64
	closeOnce sync.Once
}

// NewConnection returns an uninitialized connection, must call Connection.Connect() before using.
func NewConnection(endpoint string, kp *secp256k1.Keypair, log log15.Logger) *Connection {
	return &Connection{
		endpoint: endpoint,
		kp:       kp,
		log:      log,
	}
}

// Connect starts the ethereum client
func (c *Connection) Connect(ctx context.Context) error {
	c.log.Info("Connecting to ethereum chain...", "url", c.endpoint)
	rpcClient, err := rpc.DialContext(ctx, c.endpoint)
	if err != nil {
		return err
	}
	c.client = ethclient.NewClient(rpcClient)
	return nil
}

func (c *Connection) Keypair() *secp256k1.Keypair {
	return c.kp
}

func (c *Connection) Client() Backend {
	return c.client
}

// EnsureHasBytecode asserts if contract code exists at the specified address
func (c *Connection) EnsureHasBytecode(ctx context.Context, addr common.Address) error {
	code, err := c.client.CodeAt(ctx, addr, nil)
	if err != nil {
		return err
	}

	if len(code) == 0 {
		return fmt.Errorf("no bytecode found at %s", addr.Hex())
	}
	return nil
}

// LatestBlock returns the latest block from the current chain
func (c *Connection) LatestBlock(ctx context.Context) (uint64, error) {
	return c.client.BlockNumber(ctx)
}

// lockNonce returns the nonce to sign with; the caller must call release
// with whether the transaction was accepted.
func (c *Connection) lockNonce(ctx context.Context) (uint64, func(sent bool), error) {
	c.nonceLock.Lock()
	pending, err := c.client.PendingNonceAt(ctx, c.kp.CommonAddress())
	if err != nil {
		c.nonceLock.Unlock()
		return 0, nil, err
	}
	nonce := pending
	if c.nextNonce > nonce {
		nonce = c.nextNonce
	}
	return nonce, func(sent bool) {
		if sent {
			c.nextNonce = nonce + 1
		} else {
			c.nextNonce = 0
		}
		c.nonceLock.Unlock()
	}, nil
}

// Close terminates the client connection
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if c.client != nil {
			c.client.Close()
		}
	})
}
