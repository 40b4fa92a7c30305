// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package notary

import "context"

type MockRpc struct {
	SubmitTransactionFunc      func(ctx context.Context, typ ProposalType, info *ProposalInfo) (string, error)
	QueryTransactionResultFunc func(ctx context.Context, hash string) (TxResult, error)
	QueryContractInfoFunc      func(ctx context.Context) (*CommContractInfo, error)
	QueryRecentProposalsFunc   func(ctx context.Context, typ ProposalType, since int64) ([]*ProposalInfo, error)
	CloseFunc                  func()
}

func (mock *MockRpc) SubmitTransaction(ctx context.Context, typ ProposalType, info *ProposalInfo) (string, error) {
	if mock.SubmitTransactionFunc != nil {
		return mock.SubmitTransactionFunc(ctx, typ, info)
	}

	return "", nil
}

func (mock *MockRpc) QueryTransactionResult(ctx context.Context, hash string) (TxResult, error) {
	if mock.QueryTransactionResultFunc != nil {
		return mock.QueryTransactionResultFunc(ctx, hash)
	}

	return TxResult{Status: TxStatusPending}, nil
}

func (mock *MockRpc) QueryContractInfo(ctx context.Context) (*CommContractInfo, error) {
	if mock.QueryContractInfoFunc != nil {
		return mock.QueryContractInfoFunc(ctx)
	}

	return &CommContractInfo{SendAffirmSeq: EmptySeq, RecvAffirmSeq: EmptySeq}, nil
}

func (mock *MockRpc) QueryRecentProposals(ctx context.Context, typ ProposalType, since int64) ([]*ProposalInfo, error) {
	if mock.QueryRecentProposalsFunc != nil {
		return mock.QueryRecentProposalsFunc(ctx, typ, since)
	}

	return nil, nil
}

func (mock *MockRpc) Close() {
	if mock.CloseFunc != nil {
		mock.CloseFunc()
	}
}
