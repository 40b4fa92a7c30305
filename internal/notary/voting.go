// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package notary

import (
	"context"
	"sort"

	"github.com/mapprotocol/compass-notary/internal/report"
	"github.com/pkg/errors"
)

// RequestProposal pulls proposals newer than what the record already knows.
// Nothing is read until the chain is seeded from contract state.
func (c *ChainObj) RequestProposal(ctx context.Context, typ ProposalType) error {
	c.lock.Lock()
	if !c.seeded {
		c.lock.Unlock()
		return ErrNotSeeded
	}
	since := c.record(typ).LatestSeq()
	epoch := c.epoch
	c.lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RpcTimeout)
	defer cancel()
	infos, err := c.rpc.QueryRecentProposals(ctx, typ, since)
	if err != nil {
		return errors.Wrapf(err, "query %s proposals since %d", typ, since)
	}
	if len(infos) == 0 {
		return nil
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Seq < infos[j].Seq })

	c.lock.Lock()
	defer c.lock.Unlock()
	if c.epoch != epoch {
		return ErrEpochChanged
	}

	rec := c.record(typ)
	for _, info := range infos {
		if info == nil || info.Type != typ {
			c.log.Warn("Drop proposal of unexpected type", "want", typ, "info", info)
			continue
		}
		if err = rec.observe(info); err != nil {
			c.sequenceGapLocked(typ, err)
			return err
		}
		c.log.Debug("Observed proposal", "type", typ, "seq", info.Seq, "status", info.Status, "hash", info.Hash())
	}
	c.updateMetricsLocked()
	return nil
}

// CreateVotingProposals builds the next votes of typ from the peer's records
// and queues them. No record counter moves here.
func (c *ChainObj) CreateVotingProposals(typ ProposalType) error {
	peer := c.peerChain()
	if peer == nil {
		return ErrPeerNotLinked
	}

	unlock := lockPair(c, peer)
	defer unlock()

	if !c.seeded || !peer.seeded {
		return ErrNotSeeded
	}

	next := c.nextProposalSeqLocked(typ)
	votes, err := BuildSingleVoting(typ, c.record(typ), peer.record(typ.Peer()), next, c.cfg.MaxBatch)
	if err != nil {
		c.sequenceGapLocked(typ, err)
		return err
	}
	if len(votes) == 0 {
		return nil
	}

	c.proposalInfoVector = append(c.proposalInfoVector, votes...)
	c.log.Info("Voting proposals created", "type", typ, "from", votes[0].Seq, "to", votes[len(votes)-1].Seq)
	return nil
}

// nextProposalSeqLocked is one past everything generated, queued or being submitted for typ
func (c *ChainObj) nextProposalSeqLocked(typ ProposalType) int64 {
	highest := c.record(typ).MaxSeq
	for _, vec := range [][]*ProposalInfo{c.proposalInfoVector, c.inFlight} {
		for _, info := range vec {
			if info.Type == typ && info.Seq > highest {
				highest = info.Seq
			}
		}
	}
	return highest + 1
}

// BuildSingleVoting walks sequences upward from next and builds one vote per
// sequence, at most maxBatch of them.
//
// Inbound votes relay the peer's outbound proposals, bounded by the latest
// one the peer has seen. Outbound votes acknowledge this chain's own
// proposals, bounded by what the peer has affirmed as received. local is the
// record of typ on this chain, peer the record of typ.Peer() on the peer.
//
// A missing sequence fails the whole batch.
func BuildSingleVoting(typ ProposalType, local, peer *ProposalRecord, next int64, maxBatch int) ([]*ProposalInfo, error) {
	var source *ProposalRecord
	var limit int64
	switch typ {
	case ProposalTypeInbound:
		source = peer
		limit = peer.LatestSeq()
	case ProposalTypeOutbound:
		source = local
		limit = peer.AffirmMaxSeq
		if latest := local.LatestSeq(); latest < limit {
			limit = latest
		}
	default:
		return nil, errors.Wrapf(ErrUnknownProposalType, "%d", uint8(typ))
	}

	if limit <= local.AffirmMaxSeq || limit < next {
		return nil, nil
	}
	if next <= local.AffirmMaxSeq {
		next = local.AffirmMaxSeq + 1
	}

	votes := make([]*ProposalInfo, 0)
	for seq := next; seq <= limit && len(votes) < maxBatch; seq++ {
		src, ok := source.Get(seq)
		if !ok {
			return nil, &SequenceGapError{Type: typ, Expected: seq, Got: EmptySeq}
		}
		votes = append(votes, &ProposalInfo{
			Type:    typ,
			Seq:     seq,
			Payload: src.Payload,
			Status:  ProposalStatusPending,
		})
	}
	return votes, nil
}

type submission struct {
	info *ProposalInfo
	hash string
}

// CommitVotingProposals submits the queued votes outside the lock. A type
// stops at its first rejection so accepted votes stay contiguous; rejected
// votes are rebuilt on a later tick.
func (c *ChainObj) CommitVotingProposals(ctx context.Context) error {
	c.lock.Lock()
	batch := c.proposalInfoVector
	c.proposalInfoVector = nil
	c.inFlight = batch
	epoch := c.epoch
	c.lock.Unlock()

	if len(batch) == 0 {
		return nil
	}

	accepted := make([]submission, 0, len(batch))
	blocked := make(map[ProposalType]bool)
	var firstErr error
	for _, info := range batch {
		if blocked[info.Type] {
			continue
		}
		sctx, cancel := context.WithTimeout(ctx, c.cfg.RpcTimeout)
		hash, err := c.rpc.SubmitTransaction(sctx, info.Type, info)
		cancel()
		if err != nil {
			blocked[info.Type] = true
			c.metrics.VoteRejected(info.Type.String())
			c.log.Warn("Vote rejected", "type", info.Type, "seq", info.Seq, "err", err)
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "submit %s vote %d", info.Type, info.Seq)
			}
			continue
		}
		c.metrics.VoteSubmitted(info.Type.String())
		accepted = append(accepted, submission{info: info, hash: hash})
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if c.epoch != epoch {
		c.log.Warn("Chain reset during submission, dropping results", "accepted", len(accepted))
		return ErrEpochChanged
	}
	c.inFlight = nil

	now := c.clock()
	for _, s := range accepted {
		c.record(s.info.Type).accept(s.info.withStatus(ProposalStatusVoted))
		c.openTx[s.hash] = &txRecord{
			typ:         s.info.Type,
			seq:         s.info.Seq,
			state:       ExecuteStateInitial,
			submittedAt: now,
		}
		if c.errorTxTimes < 0 {
			c.errorTxTimes = 0
		}
		c.log.Info("Vote submitted", "type", s.info.Type, "seq", s.info.Seq, "hash", s.hash)
		c.publish(report.EventVote, s.info.Type, s.info.Seq, s.hash)
	}
	c.updateMetricsLocked()
	return firstErr
}

func (c *ChainObj) sequenceGapLocked(typ ProposalType, err error) {
	if !errors.Is(err, ErrSequenceGap) {
		return
	}
	c.log.Error("Proposal sequence gap", "type", typ, "err", err)
	c.metrics.SequenceGap(typ.String())
	c.failureLocked("sequence gap")
}
