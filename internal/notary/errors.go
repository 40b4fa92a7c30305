// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package notary

import (
	"errors"
	"fmt"
)

var (
	ErrSequenceGap         = errors.New("proposal sequence gap")
	ErrNotaryListOverflow  = errors.New("notary list overflow")
	ErrPeerNotLinked       = errors.New("peer chain not linked")
	ErrPeerAlreadyLinked   = errors.New("peer chain already linked")
	ErrInvalidPeer         = errors.New("invalid peer chain")
	ErrNotSeeded           = errors.New("chain not seeded from contract state")
	ErrAffirmRegressed     = errors.New("on-chain affirm sequence regressed")
	ErrInvalidConfigure    = errors.New("invalid chain configure")
	ErrUnknownProposalType = errors.New("unknown proposal type")
	ErrEpochChanged        = errors.New("chain reset while request in flight")
	ErrNilContractInfo     = errors.New("nil contract info")
)

// SequenceGapError reports a missing sequence while walking proposals in order
type SequenceGapError struct {
	Type     ProposalType
	Expected int64
	Got      int64 // EmptySeq when the expected entry is simply absent
}

func (e *SequenceGapError) Error() string {
	if e.Got == EmptySeq {
		return fmt.Sprintf("%s: type %s seq %d missing", ErrSequenceGap, e.Type, e.Expected)
	}
	return fmt.Sprintf("%s: type %s expected seq %d, got %d", ErrSequenceGap, e.Type, e.Expected, e.Got)
}

func (e *SequenceGapError) Is(target error) bool {
	return target == ErrSequenceGap
}
