// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package notary

import (
	"context"
)

type TxStatus uint8

const (
	TxStatusPending TxStatus = iota
	TxStatusSuccess
	TxStatusFailure
)

// TxResult is the chain's verdict on a submitted vote; Code 0 means success
type TxResult struct {
	Status TxStatus
	Code   int
}

// CommContractInfo is the notary contract state of one chain
type CommContractInfo struct {
	Address       string
	BlockHeight   uint64
	SendAffirmSeq int64 // affirmed outbound sequence, EmptySeq if none
	RecvAffirmSeq int64 // affirmed inbound sequence, EmptySeq if none
	SendNotaries  []string
	RecvNotaries  []string
}

// ChainRpc is everything ChainObj needs from a chain. Implementations must be
// safe for concurrent use and must never call back into the notary.
type ChainRpc interface {
	SubmitTransaction(ctx context.Context, typ ProposalType, info *ProposalInfo) (string, error)
	QueryTransactionResult(ctx context.Context, hash string) (TxResult, error)
	QueryContractInfo(ctx context.Context) (*CommContractInfo, error)
	// QueryRecentProposals returns proposals with seq greater than since, in ascending order
	QueryRecentProposals(ctx context.Context, typ ProposalType, since int64) ([]*ProposalInfo, error)
	Close()
}
