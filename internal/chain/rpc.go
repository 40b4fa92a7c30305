package chain

import (
	"context"
	"math/big"

	"github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/mapprotocol/compass-notary/internal/notary"
	"github.com/mapprotocol/compass-notary/pkg/abi"
	"github.com/mapprotocol/compass-notary/pkg/contract"
	"github.com/pkg/errors"
)

// Rpc talks to the notary contract of an EVM chain
type Rpc struct {
	cfg     *Config
	conn    *Connection
	abi     *abi.Abi
	call    *contract.Call
	chainID *big.Int
	log     log15.Logger
}

var _ notary.ChainRpc = (*Rpc)(nil)

func NewRpc(cfg *Config, conn *Connection, log log15.Logger) (*Rpc, error) {
	notaryAbi, err := abi.New(NotaryAbiJson)
	if err != nil {
		return nil, err
	}
	return &Rpc{
		cfg:     cfg,
		conn:    conn,
		abi:     notaryAbi,
		call:    contract.New(conn.Client(), conn.Keypair().CommonAddress(), cfg.NotaryContract, notaryAbi),
		chainID: new(big.Int).SetUint64(uint64(cfg.Id)),
		log:     log,
	}, nil
}

func (r *Rpc) SubmitTransaction(ctx context.Context, typ notary.ProposalType, info *notary.ProposalInfo) (string, error) {
	input, err := r.abi.PackInput(MethodOfVote, uint8(typ), info.Seq, info.Payload)
	if err != nil {
		return "", err
	}
	to := r.cfg.NotaryContract
	tx, err := r.sendTx(ctx, &to, input)
	if err != nil {
		return "", err
	}
	r.log.Debug("Vote sent", "type", typ, "seq", info.Seq, "hash", tx.Hash())
	return tx.Hash().Hex(), nil
}

// QueryTransactionResult reports a receipt only once it has BlockConfirmations blocks on top
func (r *Rpc) QueryTransactionResult(ctx context.Context, hash string) (notary.TxResult, error) {
	receipt, err := r.conn.Client().TransactionReceipt(ctx, common.HexToHash(hash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return notary.TxResult{Status: notary.TxStatusPending}, nil
		}
		return notary.TxResult{}, err
	}
	if receipt.BlockNumber != nil && r.cfg.BlockConfirmations > 0 {
		latest, err := r.conn.LatestBlock(ctx)
		if err != nil {
			return notary.TxResult{}, err
		}
		if latest < receipt.BlockNumber.Uint64()+r.cfg.BlockConfirmations {
			return notary.TxResult{Status: notary.TxStatusPending}, nil
		}
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return notary.TxResult{Status: notary.TxStatusSuccess}, nil
	}
	return notary.TxResult{Status: notary.TxStatusFailure, Code: 1}, nil
}

type commInfoOutput struct {
	SendAffirmSeq int64
	RecvAffirmSeq int64
	SendNotaries  []common.Address
	RecvNotaries  []common.Address
}

func (r *Rpc) QueryContractInfo(ctx context.Context) (*notary.CommContractInfo, error) {
	height, err := r.conn.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}
	var out commInfoOutput
	if err = r.call.Call(ctx, MethodOfCommInfo, &out); err != nil {
		return nil, errors.Wrap(err, "call commInfo")
	}
	return &notary.CommContractInfo{
		Address:       r.cfg.NotaryContract.Hex(),
		BlockHeight:   height,
		SendAffirmSeq: out.SendAffirmSeq,
		RecvAffirmSeq: out.RecvAffirmSeq,
		SendNotaries:  addressesToHex(out.SendNotaries),
		RecvNotaries:  addressesToHex(out.RecvNotaries),
	}, nil
}

type proposalsOutput struct {
	Seqs     []int64
	Payloads [][]byte
	Status   []uint8
}

func (r *Rpc) QueryRecentProposals(ctx context.Context, typ notary.ProposalType, since int64) ([]*notary.ProposalInfo, error) {
	var out proposalsOutput
	if err := r.call.Call(ctx, MethodOfProposalsSince, &out, uint8(typ), since, big.NewInt(r.cfg.ProposalLimit)); err != nil {
		return nil, errors.Wrap(err, "call proposalsSince")
	}
	if len(out.Seqs) != len(out.Payloads) || len(out.Seqs) != len(out.Status) {
		return nil, errors.Errorf("proposalsSince returned %d seqs, %d payloads and %d status",
			len(out.Seqs), len(out.Payloads), len(out.Status))
	}

	infos := make([]*notary.ProposalInfo, 0, len(out.Seqs))
	for i, seq := range out.Seqs {
		if seq <= since {
			continue
		}
		status := notary.ProposalStatus(out.Status[i])
		if status > notary.ProposalStatusConfirmed {
			return nil, errors.Errorf("proposal %d has unknown status %d", seq, out.Status[i])
		}
		infos = append(infos, &notary.ProposalInfo{
			Type:    typ,
			Seq:     seq,
			Payload: out.Payloads[i],
			Status:  status,
		})
	}
	return infos, nil
}

func (r *Rpc) Close() {
	r.conn.Close()
}

func addressesToHex(addrs []common.Address) []string {
	ret := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		ret = append(ret, addr.Hex())
	}
	return ret
}
