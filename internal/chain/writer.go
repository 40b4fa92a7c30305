package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const sendRetries = 3

// sendTx signs and sends a contract call, retrying when the nonce went stale
func (r *Rpc) sendTx(ctx context.Context, toAddress *common.Address, input []byte) (*types.Transaction, error) {
	var (
		tx  *types.Transaction
		err error
	)
	for i := 0; i < sendRetries; i++ {
		tx, err = r.trySendTx(ctx, toAddress, input)
		if !needNonce(err) {
			return tx, err
		}
		r.log.Warn("Nonce too low, retrying", "attempt", i+1, "err", err)
	}
	return nil, err
}

func (r *Rpc) trySendTx(ctx context.Context, toAddress *common.Address, input []byte) (*types.Transaction, error) {
	client := r.conn.Client()
	from := r.conn.Keypair().CommonAddress()

	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   toAddress,
		Data: input,
	})
	if err != nil {
		r.log.Error("EstimateGas failed sendTx", "error:", err.Error())
		return nil, err
	}
	if r.cfg.LimitMultiplier > 1 {
		gasLimit = uint64(float64(gasLimit) * r.cfg.LimitMultiplier)
	}
	if gasLimit < MinGasLimit {
		gasLimit = MinGasLimit
	}
	if gasLimit > MaxGasLimit {
		gasLimit = MaxGasLimit
	}
	if r.cfg.GasLimit != nil && r.cfg.GasLimit.IsUint64() && gasLimit > r.cfg.GasLimit.Uint64() {
		gasLimit = r.cfg.GasLimit.Uint64()
	}

	gasPrice, gasTipCap, gasFeeCap, err := r.gasPrice(ctx)
	if err != nil {
		return nil, err
	}

	nonce, release, err := r.conn.lockNonce(ctx)
	if err != nil {
		return nil, err
	}
	sent := false
	defer func() { release(sent) }()

	r.log.Debug("SendTx gasPrice", "gasPrice", gasPrice, "gasTipCap", gasTipCap, "gasFeeCap", gasFeeCap,
		"gasLimit", gasLimit, "nonce", nonce)
	var td types.TxData
	if gasPrice != nil {
		// legacy branch
		td = &types.LegacyTx{
			Nonce:    nonce,
			To:       toAddress,
			Gas:      gasLimit,
			GasPrice: gasPrice,
			Data:     input,
		}
	} else {
		// london branch
		td = &types.DynamicFeeTx{
			ChainID:   r.chainID,
			Nonce:     nonce,
			To:        toAddress,
			Gas:       gasLimit,
			GasTipCap: gasTipCap,
			GasFeeCap: gasFeeCap,
			Data:      input,
		}
	}

	signedTx, err := types.SignTx(types.NewTx(td), types.NewLondonSigner(r.chainID), r.conn.Keypair().PrivateKey())
	if err != nil {
		r.log.Error("SignTx failed", "error:", err.Error())
		return nil, err
	}

	if err = client.SendTransaction(ctx, signedTx); err != nil {
		r.log.Error("SendTransaction failed", "error:", err.Error())
		return nil, err
	}
	sent = true
	return signedTx, nil
}

// gasPrice returns either a legacy price or an EIP-1559 tip and fee cap, all bounded by MaxGasPrice
func (r *Rpc) gasPrice(ctx context.Context) (*big.Int, *big.Int, *big.Int, error) {
	client := r.conn.Client()
	if !r.cfg.Legacy {
		head, err := client.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		if head.BaseFee != nil {
			tip, err := client.SuggestGasTipCap(ctx)
			if err != nil {
				return nil, nil, nil, err
			}
			tip = r.multiply(tip)
			feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
			feeCap = r.capPrice(feeCap)
			if tip.Cmp(feeCap) > 0 {
				tip = new(big.Int).Set(feeCap)
			}
			return nil, tip, feeCap, nil
		}
	}

	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return r.capPrice(r.multiply(price)), nil, nil, nil
}

func (r *Rpc) multiply(price *big.Int) *big.Int {
	if r.cfg.GasMultiplier <= 1 {
		return price
	}
	f := new(big.Float).Mul(new(big.Float).SetInt(price), big.NewFloat(r.cfg.GasMultiplier))
	ret, _ := f.Int(nil)
	return ret
}

func (r *Rpc) capPrice(price *big.Int) *big.Int {
	if r.cfg.MaxGasPrice != nil && r.cfg.MaxGasPrice.Sign() > 0 && price.Cmp(r.cfg.MaxGasPrice) > 0 {
		return new(big.Int).Set(r.cfg.MaxGasPrice)
	}
	return price
}

func needNonce(err error) bool {
	return err != nil && strings.Contains(err.Error(), "nonce too low")
}
