// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package notary

import (
	"context"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

// RequestCommContractInfo refreshes the contract view. An unseeded chain is
// seeded from it; a seeded chain only moves affirm sequences forward, and a
// regression is treated as a reorganization and resets the chain.
func (c *ChainObj) RequestCommContractInfo(ctx context.Context) error {
	qctx, cancel := context.WithTimeout(ctx, c.cfg.RpcTimeout)
	info, err := c.rpc.QueryContractInfo(qctx)
	cancel()
	if err != nil {
		return errors.Wrap(err, "query contract info")
	}
	if info == nil {
		return ErrNilContractInfo
	}

	if capacity := c.cfg.NotaryListCapacity; len(info.SendNotaries) > capacity || len(info.RecvNotaries) > capacity {
		err = fmt.Errorf("%w: contract reports %d send and %d recv notaries, capacity %d",
			ErrNotaryListOverflow, len(info.SendNotaries), len(info.RecvNotaries), capacity)
		c.log.Error("Notary list rejected", "err", err)
		c.raise("notary list rejected: %v", err)
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.seeded {
		if info.SendAffirmSeq < c.sendRecord.AffirmMaxSeq || info.RecvAffirmSeq < c.recvRecord.AffirmMaxSeq {
			c.log.Error("On-chain affirm sequence regressed", "send", info.SendAffirmSeq, "localSend", c.sendRecord.AffirmMaxSeq,
				"recv", info.RecvAffirmSeq, "localRecv", c.recvRecord.AffirmMaxSeq, "height", info.BlockHeight)
			c.resetLocked("affirm sequence regressed")
			return ErrAffirmRegressed
		}
		if c.sendRecord.advanceAffirm(info.SendAffirmSeq) {
			c.log.Debug("Outbound affirm advanced from chain", "seq", info.SendAffirmSeq)
		}
		if c.recvRecord.advanceAffirm(info.RecvAffirmSeq) {
			c.log.Debug("Inbound affirm advanced from chain", "seq", info.RecvAffirmSeq)
		}
	} else {
		c.sendRecord.seed(info.SendAffirmSeq)
		c.recvRecord.seed(info.RecvAffirmSeq)
		c.seeded = true
		c.compareCheckpointLocked(info)
		c.log.Info("Chain seeded from contract", "address", info.Address, "height", info.BlockHeight,
			"send", c.sendRecord.AffirmMaxSeq, "recv", c.recvRecord.AffirmMaxSeq)
	}

	// capacity was checked above
	_ = c.sendNotaries.Set(info.SendNotaries)
	_ = c.recvNotaries.Set(info.RecvNotaries)
	cp := *info
	c.commInfo = &cp
	c.updateMetricsLocked()
	return nil
}

// CommContractInfo returns a copy of the last contract view
func (c *ChainObj) CommContractInfo() (CommContractInfo, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.commInfo == nil {
		return CommContractInfo{}, false
	}
	info := *c.commInfo
	info.SendNotaries = c.sendNotaries.Items()
	info.RecvNotaries = c.recvNotaries.Items()
	return info, true
}

// checkpoint holds the affirm sequences last persisted
type checkpoint struct {
	send int64
	recv int64
}

// Stores keep affirm+1 so an empty store reads as EmptySeq.
func encodeSeq(seq int64) *big.Int { return big.NewInt(seq + 1) }

func decodeSeq(v *big.Int) int64 {
	if v == nil || !v.IsInt64() {
		return EmptySeq
	}
	return v.Int64() - 1
}

func (c *ChainObj) loadCheckpoint() error {
	if c.sendStore == nil || c.recvStore == nil || c.freshStart {
		return nil
	}
	send, err := c.sendStore.TryLoadLatestBlock()
	if err != nil {
		return errors.Wrap(err, "load outbound checkpoint")
	}
	recv, err := c.recvStore.TryLoadLatestBlock()
	if err != nil {
		return errors.Wrap(err, "load inbound checkpoint")
	}
	c.checkpoint = &checkpoint{send: decodeSeq(send), recv: decodeSeq(recv)}
	c.log.Info("Checkpoint loaded", "send", c.checkpoint.send, "recv", c.checkpoint.recv)
	return nil
}

func (c *ChainObj) compareCheckpointLocked(info *CommContractInfo) {
	if c.checkpoint == nil {
		return
	}
	if info.SendAffirmSeq < c.checkpoint.send || info.RecvAffirmSeq < c.checkpoint.recv {
		c.log.Warn("Contract affirm behind checkpoint, possible reorganization",
			"send", info.SendAffirmSeq, "checkpointSend", c.checkpoint.send,
			"recv", info.RecvAffirmSeq, "checkpointRecv", c.checkpoint.recv)
		c.raise("contract affirm behind checkpoint, send %d/%d recv %d/%d",
			info.SendAffirmSeq, c.checkpoint.send, info.RecvAffirmSeq, c.checkpoint.recv)
	}
}

func (c *ChainObj) saveCheckpoint() error {
	if c.sendStore == nil || c.recvStore == nil {
		return nil
	}
	c.lock.Lock()
	if !c.seeded {
		c.lock.Unlock()
		return nil
	}
	next := checkpoint{send: c.sendRecord.AffirmMaxSeq, recv: c.recvRecord.AffirmMaxSeq}
	if c.checkpoint != nil && *c.checkpoint == next {
		c.lock.Unlock()
		return nil
	}
	c.lock.Unlock()

	if err := c.sendStore.StoreBlock(encodeSeq(next.send)); err != nil {
		return errors.Wrap(err, "store outbound checkpoint")
	}
	if err := c.recvStore.StoreBlock(encodeSeq(next.recv)); err != nil {
		return errors.Wrap(err, "store inbound checkpoint")
	}

	c.lock.Lock()
	c.checkpoint = &next
	c.lock.Unlock()
	return nil
}
