// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package notary

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func outbound(seq int64, status ProposalStatus) *ProposalInfo {
	return &ProposalInfo{Type: ProposalTypeOutbound, Seq: seq, Payload: []byte{byte(seq)}, Status: status}
}

func inbound(seq int64, status ProposalStatus) *ProposalInfo {
	return &ProposalInfo{Type: ProposalTypeInbound, Seq: seq, Payload: []byte{byte(seq)}, Status: status}
}

func TestProposalRecordReset(t *testing.T) {
	r := NewProposalRecord()
	require.Equal(t, EmptySeq, r.MaxSeq)
	require.Equal(t, EmptySeq, r.AffirmMaxSeq)

	r.seed(3)
	require.NoError(t, r.observe(inbound(4, ProposalStatusVoted)))
	require.NoError(t, r.observe(inbound(5, ProposalStatusPending)))
	r.confirm(4)

	r.Reset()
	once := *r
	r.Reset()
	require.Equal(t, once.MaxSeq, r.MaxSeq)
	require.Equal(t, once.AffirmMaxSeq, r.AffirmMaxSeq)
	require.Equal(t, NewProposalRecord(), r)
}

func TestProposalRecordObserveGap(t *testing.T) {
	r := NewProposalRecord()
	r.seed(4)

	require.NoError(t, r.observe(outbound(5, ProposalStatusPending)))
	require.NoError(t, r.observe(outbound(6, ProposalStatusPending)))

	err := r.observe(outbound(8, ProposalStatusPending))
	require.True(t, errors.Is(err, ErrSequenceGap))
	var gap *SequenceGapError
	require.True(t, errors.As(err, &gap))
	require.Equal(t, int64(7), gap.Expected)
	require.Equal(t, int64(8), gap.Got)

	_, ok := r.Get(8)
	require.False(t, ok)
	require.Equal(t, int64(6), r.LatestSeq())
}

func TestProposalRecordObserveIgnoresAffirmed(t *testing.T) {
	r := NewProposalRecord()
	r.seed(4)

	require.NoError(t, r.observe(outbound(2, ProposalStatusConfirmed)))
	require.NoError(t, r.observe(outbound(4, ProposalStatusPending)))
	require.Empty(t, r.ProposalInfoMap)
}

func TestProposalRecordVotedRaisesMaxSeq(t *testing.T) {
	r := NewProposalRecord()
	r.seed(4)

	require.NoError(t, r.observe(inbound(5, ProposalStatusVoted)))
	require.Equal(t, int64(5), r.MaxSeq)

	require.NoError(t, r.observe(inbound(6, ProposalStatusPending)))
	require.NoError(t, r.observe(inbound(7, ProposalStatusVoted)))
	require.Equal(t, int64(5), r.MaxSeq, "7 is voted but 6 is not")

	// a later view of 6 replaces the entry
	require.NoError(t, r.observe(inbound(6, ProposalStatusVoted)))
	require.Equal(t, int64(7), r.MaxSeq)
	require.Equal(t, int64(4), r.AffirmMaxSeq)

	// an older view never downgrades
	require.NoError(t, r.observe(inbound(6, ProposalStatusPending)))
	info, ok := r.Get(6)
	require.True(t, ok)
	require.Equal(t, ProposalStatusVoted, info.Status)
}

func TestProposalRecordConfirmContiguous(t *testing.T) {
	r := NewProposalRecord()
	for seq := int64(0); seq < 3; seq++ {
		r.accept(outbound(seq, ProposalStatusVoted))
	}
	require.Equal(t, int64(2), r.MaxSeq)

	r.confirm(1)
	require.Equal(t, EmptySeq, r.AffirmMaxSeq, "0 is still open")
	require.Len(t, r.ProposalInfoMap, 3)

	r.confirm(0)
	require.Equal(t, int64(1), r.AffirmMaxSeq)
	require.Len(t, r.ProposalInfoMap, 1)

	r.confirm(2)
	require.Equal(t, int64(2), r.AffirmMaxSeq)
	require.Empty(t, r.ProposalInfoMap)

	// confirming again is a no-op
	r.confirm(2)
	require.Equal(t, int64(2), r.AffirmMaxSeq)
}

func TestProposalRecordAdvanceAffirm(t *testing.T) {
	r := NewProposalRecord()
	for seq := int64(0); seq < 3; seq++ {
		r.accept(outbound(seq, ProposalStatusVoted))
	}

	require.True(t, r.advanceAffirm(5))
	require.Equal(t, int64(5), r.AffirmMaxSeq)
	require.Equal(t, int64(5), r.MaxSeq)
	require.Empty(t, r.ProposalInfoMap)

	require.False(t, r.advanceAffirm(3))
	require.Equal(t, int64(5), r.AffirmMaxSeq)
}

func TestProposalRecordAcceptBelowAffirm(t *testing.T) {
	r := NewProposalRecord()
	r.seed(5)
	r.accept(outbound(3, ProposalStatusVoted))
	require.Empty(t, r.ProposalInfoMap)
	require.Equal(t, int64(5), r.MaxSeq)
}

func TestProposalRecordAffirmNeverExceedsMax(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	r := NewProposalRecord()

	for i := 0; i < 5000; i++ {
		switch rnd.Intn(6) {
		case 0:
			status := ProposalStatus(rnd.Intn(3))
			_ = r.observe(outbound(r.LatestSeq()+1, status))
		case 1:
			r.accept(outbound(r.MaxSeq+1, ProposalStatusVoted))
		case 2:
			if r.MaxSeq > r.AffirmMaxSeq {
				r.confirm(r.AffirmMaxSeq + 1 + rnd.Int63n(r.MaxSeq-r.AffirmMaxSeq))
			}
		case 3:
			r.advanceAffirm(r.AffirmMaxSeq + rnd.Int63n(3))
		case 4:
			_ = r.observe(outbound(r.LatestSeq()+2, ProposalStatusPending))
		case 5:
			if rnd.Intn(50) == 0 {
				r.Reset()
			}
		}
		require.LessOrEqual(t, r.AffirmMaxSeq, r.MaxSeq, "step %d", i)
		for seq := range r.ProposalInfoMap {
			require.Greater(t, seq, r.AffirmMaxSeq, "step %d", i)
		}
	}
}

func TestBuildSingleVotingGap(t *testing.T) {
	local := NewProposalRecord()
	local.seed(4)
	peer := NewProposalRecord()
	for _, seq := range []int64{5, 6, 8} {
		peer.ProposalInfoMap[seq] = outbound(seq, ProposalStatusPending)
	}

	votes, err := BuildSingleVoting(ProposalTypeInbound, local, peer, 5, DefaultMaxBatch)
	require.True(t, errors.Is(err, ErrSequenceGap))
	var gap *SequenceGapError
	require.True(t, errors.As(err, &gap))
	require.Equal(t, int64(7), gap.Expected)
	require.Nil(t, votes)
}

func TestBuildSingleVotingInbound(t *testing.T) {
	local := NewProposalRecord()
	local.seed(4)
	peer := NewProposalRecord()
	peer.seed(4)
	for seq := int64(5); seq <= 7; seq++ {
		require.NoError(t, peer.observe(outbound(seq, ProposalStatusPending)))
	}

	votes, err := BuildSingleVoting(ProposalTypeInbound, local, peer, 5, DefaultMaxBatch)
	require.NoError(t, err)
	require.Len(t, votes, 3)
	for i, vote := range votes {
		require.Equal(t, ProposalTypeInbound, vote.Type)
		require.Equal(t, int64(5+i), vote.Seq)
		require.Equal(t, []byte{byte(5 + i)}, vote.Payload)
		require.Equal(t, ProposalStatusPending, vote.Status)
	}

	votes, err = BuildSingleVoting(ProposalTypeInbound, local, peer, 5, 2)
	require.NoError(t, err)
	require.Len(t, votes, 2)

	votes, err = BuildSingleVoting(ProposalTypeInbound, local, peer, 8, DefaultMaxBatch)
	require.NoError(t, err)
	require.Empty(t, votes)
}

func TestBuildSingleVotingOutbound(t *testing.T) {
	local := NewProposalRecord()
	local.seed(4)
	for seq := int64(5); seq <= 7; seq++ {
		require.NoError(t, local.observe(outbound(seq, ProposalStatusPending)))
	}

	peer := NewProposalRecord()
	peer.seed(4)
	votes, err := BuildSingleVoting(ProposalTypeOutbound, local, peer, 5, DefaultMaxBatch)
	require.NoError(t, err)
	require.Empty(t, votes, "peer affirmed nothing new")

	peer.advanceAffirm(6)
	votes, err = BuildSingleVoting(ProposalTypeOutbound, local, peer, 5, DefaultMaxBatch)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	require.Equal(t, int64(5), votes[0].Seq)
	require.Equal(t, int64(6), votes[1].Seq)

	peer.advanceAffirm(20)
	votes, err = BuildSingleVoting(ProposalTypeOutbound, local, peer, 5, DefaultMaxBatch)
	require.NoError(t, err)
	require.Len(t, votes, 3, "bounded by what this chain has seen")
}

func TestBuildSingleVotingUnknownType(t *testing.T) {
	_, err := BuildSingleVoting(ProposalType(9), NewProposalRecord(), NewProposalRecord(), 0, 1)
	require.True(t, errors.Is(err, ErrUnknownProposalType))
}

func TestProposalTypes(t *testing.T) {
	require.Equal(t, ProposalTypeInbound, ProposalTypeOutbound.Peer())
	require.Equal(t, ProposalTypeOutbound, ProposalTypeInbound.Peer())

	typ, err := ParseProposalType("Inbound")
	require.NoError(t, err)
	require.Equal(t, ProposalTypeInbound, typ)
	_, err = ParseProposalType("sideways")
	require.True(t, errors.Is(err, ErrUnknownProposalType))

	a := outbound(3, ProposalStatusPending)
	b := outbound(3, ProposalStatusConfirmed)
	require.Equal(t, a.Hash(), b.Hash())
	require.NotEqual(t, a.Hash(), inbound(3, ProposalStatusPending).Hash())
}
