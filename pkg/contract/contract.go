package contract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mapprotocol/compass-notary/pkg/abi"
)

// Caller is satisfied by *ethclient.Client
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Call struct {
	abi    *abi.Abi
	to     common.Address
	from   common.Address
	caller Caller
}

func New(caller Caller, from, to common.Address, abi *abi.Abi) *Call {
	return &Call{
		caller: caller,
		from:   from,
		to:     to,
		abi:    abi,
	}
}

func (c *Call) Address() common.Address {
	return c.to
}

// Call runs a read-only method at the latest block and copies its outputs into ret
func (c *Call) Call(ctx context.Context, method string, ret interface{}, params ...interface{}) error {
	input, err := c.abi.PackInput(method, params...)
	if err != nil {
		return err
	}

	outPut, err := c.caller.CallContract(ctx,
		ethereum.CallMsg{
			From: c.from,
			To:   &c.to,
			Data: input,
		},
		nil,
	)
	if err != nil {
		return err
	}

	return c.abi.UnpackOutput(method, ret, outPut)
}
