// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "notary"

var (
	votesSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_submitted_total",
		Help:      "Vote transactions accepted by the chain rpc.",
	}, []string{"chain", "type"})

	votesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_rejected_total",
		Help:      "Vote transactions rejected at submission.",
	}, []string{"chain", "type"})

	txResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tx_results_total",
		Help:      "Terminal results of vote transactions.",
	}, []string{"chain", "result"})

	resets = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resets_total",
		Help:      "Full chain state resets.",
	}, []string{"chain"})

	sequenceGaps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sequence_gaps_total",
		Help:      "Sequence gaps detected while reading or building proposals.",
	}, []string{"chain", "type"})

	maxSeq = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "max_seq",
		Help:      "Highest generated or voted sequence per record.",
	}, []string{"chain", "type"})

	affirmSeq = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "affirm_max_seq",
		Help:      "Highest confirmed sequence per record.",
	}, []string{"chain", "type"})

	errorTxTimes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "error_tx_times",
		Help:      "Consecutive vote failures, -1 when not tracking.",
	}, []string{"chain"})
)

// Register adds every notary collector to reg
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		votesSubmitted, votesRejected, txResults, resets, sequenceGaps, maxSeq, affirmSeq, errorTxTimes,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ChainMetrics is the per-chain view of the collectors. A nil *ChainMetrics records nothing.
type ChainMetrics struct {
	chain string
}

func NewChainMetrics(chain string) *ChainMetrics {
	return &ChainMetrics{chain: chain}
}

func (m *ChainMetrics) VoteSubmitted(typ string) {
	if m == nil {
		return
	}
	votesSubmitted.WithLabelValues(m.chain, typ).Inc()
}

func (m *ChainMetrics) VoteRejected(typ string) {
	if m == nil {
		return
	}
	votesRejected.WithLabelValues(m.chain, typ).Inc()
}

func (m *ChainMetrics) TxResult(result string) {
	if m == nil {
		return
	}
	txResults.WithLabelValues(m.chain, result).Inc()
}

func (m *ChainMetrics) Reset() {
	if m == nil {
		return
	}
	resets.WithLabelValues(m.chain).Inc()
}

func (m *ChainMetrics) SequenceGap(typ string) {
	if m == nil {
		return
	}
	sequenceGaps.WithLabelValues(m.chain, typ).Inc()
}

func (m *ChainMetrics) Sequences(typ string, max, affirm int64) {
	if m == nil {
		return
	}
	maxSeq.WithLabelValues(m.chain, typ).Set(float64(max))
	affirmSeq.WithLabelValues(m.chain, typ).Set(float64(affirm))
}

func (m *ChainMetrics) ErrorTxTimes(n int) {
	if m == nil {
		return
	}
	errorTxTimes.WithLabelValues(m.chain).Set(float64(n))
}
