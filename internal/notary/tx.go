// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package notary

import (
	"context"

	"github.com/mapprotocol/compass-notary/internal/report"
)

func (c *ChainObj) awaitingHashesLocked() []string {
	hashes := make([]string, 0, len(c.openTx))
	for hash, rec := range c.openTx {
		if rec.state.awaiting() {
			hashes = append(hashes, hash)
		}
	}
	return hashes
}

// settleLocked moves a record out of the open set into the bounded history
func (c *ChainObj) settleLocked(hash string, rec *txRecord) {
	delete(c.openTx, hash)
	c.txHistory.Add(hash, rec)
}

// pollTxResults queries every in-flight vote and feeds terminal results to HandleTxResult
func (c *ChainObj) pollTxResults(ctx context.Context) {
	c.lock.Lock()
	hashes := c.awaitingHashesLocked()
	c.lock.Unlock()

	for _, hash := range hashes {
		qctx, cancel := context.WithTimeout(ctx, c.cfg.RpcTimeout)
		ret, err := c.rpc.QueryTransactionResult(qctx, hash)
		cancel()
		if err != nil {
			c.log.Debug("Query tx result failed", "hash", hash, "err", err)
			continue
		}
		switch ret.Status {
		case TxStatusPending:
			c.markProcessing(hash)
		case TxStatusSuccess:
			c.HandleTxResult(hash, 0)
		case TxStatusFailure:
			code := ret.Code
			if code == 0 {
				code = 1
			}
			c.HandleTxResult(hash, code)
		}
	}
}

func (c *ChainObj) markProcessing(hash string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if rec, ok := c.openTx[hash]; ok && rec.state == ExecuteStateInitial {
		rec.state = ExecuteStateProcessing
	}
}

// HandleTxResult applies the terminal result of a submitted vote. Unknown,
// stale and already settled hashes are ignored.
func (c *ChainObj) HandleTxResult(hash string, code int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	rec, ok := c.openTx[hash]
	if !ok {
		if v, settled := c.txHistory.Peek(hash); settled {
			c.log.Debug("Ignore result of settled tx", "hash", hash, "state", v.(*txRecord).state)
			return
		}
		c.log.Debug("Ignore result of unknown tx", "hash", hash, "code", code)
		return
	}
	if !rec.state.awaiting() {
		c.log.Debug("Ignore result of settled tx", "hash", hash, "state", rec.state)
		return
	}
	rec.finishedAt = c.clock()

	if code == 0 {
		rec.state = ExecuteStateSuccess
		c.settleLocked(hash, rec)
		c.record(rec.typ).confirm(rec.seq)
		c.errorTxTimes = 0
		c.metrics.TxResult(ExecuteStateSuccess.String())
		c.log.Info("Vote confirmed", "type", rec.typ, "seq", rec.seq, "hash", hash)
		c.publish(report.EventSuccess, rec.typ, rec.seq, hash)
		c.updateMetricsLocked()
		return
	}

	rec.state = ExecuteStateFail
	c.metrics.TxResult(ExecuteStateFail.String())
	c.log.Warn("Vote failed", "type", rec.typ, "seq", rec.seq, "hash", hash, "code", code)
	c.publish(report.EventFail, rec.typ, rec.seq, hash)
	c.failureLocked("tx failed")
	c.updateMetricsLocked()
}

// CheckTxError fails votes stuck past the tx timeout and resets the chain when
// failures reach the threshold, or when a failed vote has blocked the affirm
// sequence for longer than the timeout. Failed votes the affirm sequence has
// moved past are settled into the history.
func (c *ChainObj) CheckTxError(now int64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	timeout := c.cfg.TxTimeout.Milliseconds()
	for hash, rec := range c.openTx {
		if !rec.state.awaiting() || now-rec.submittedAt <= timeout {
			continue
		}
		rec.state = ExecuteStateFail
		rec.finishedAt = now
		c.metrics.TxResult("timeout")
		c.log.Warn("Vote timed out", "type", rec.typ, "seq", rec.seq, "hash", hash)
		c.countFailureLocked()
	}
	if c.checkThresholdLocked("tx error threshold reached") {
		return
	}

	for hash, rec := range c.openTx {
		if rec.state != ExecuteStateFail {
			continue
		}
		affirm := c.record(rec.typ).AffirmMaxSeq
		if rec.seq <= affirm {
			c.settleLocked(hash, rec)
			continue
		}
		if rec.seq == affirm+1 && now-rec.finishedAt > timeout {
			c.resetLocked("failed vote blocks affirm sequence")
			return
		}
	}
	c.updateMetricsLocked()
}

// ResetChainInfo drops all tracked state so the chain rebuilds from contract state
func (c *ChainObj) ResetChainInfo() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.resetLocked("requested")
}

func (c *ChainObj) countFailureLocked() {
	if c.errorTxTimes < 0 {
		c.errorTxTimes = 0
	}
	c.errorTxTimes++
}

func (c *ChainObj) failureLocked(reason string) {
	c.countFailureLocked()
	c.checkThresholdLocked(reason)
}

func (c *ChainObj) checkThresholdLocked(reason string) bool {
	if c.errorTxTimes < c.cfg.ErrorThreshold {
		return false
	}
	c.resetLocked(reason)
	return true
}

func (c *ChainObj) resetLocked(reason string) {
	failures := c.errorTxTimes

	c.sendRecord.Reset()
	c.recvRecord.Reset()
	c.errorTxTimes = -1
	c.openTx = make(map[string]*txRecord)
	c.txHistory.Purge()
	c.sendNotaries.Clear()
	c.recvNotaries.Clear()
	c.commInfo = nil
	c.seeded = false
	c.proposalInfoVector = nil
	c.inFlight = nil
	c.epoch++
	c.resets++

	c.log.Warn("Chain info reset", "reason", reason, "failures", failures, "epoch", c.epoch)
	c.metrics.Reset()
	c.updateMetricsLocked()
	c.publish(report.EventReset, 0, EmptySeq, "")
	c.raise("state reset, reason: %s, failures: %d", reason, failures)
}
