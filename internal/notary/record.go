// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package notary

type ProposalInfoMap map[int64]*ProposalInfo

// ProposalRecord tracks one direction of one chain. It is plain data guarded
// by the owning ChainObj's lock.
//
// AffirmMaxSeq <= MaxSeq always holds, and AffirmMaxSeq only moves forward
// until Reset.
type ProposalRecord struct {
	ProposalInfoMap ProposalInfoMap
	MaxSeq          int64
	AffirmMaxSeq    int64

	// confirmed holds sequences confirmed out of order, waiting for the
	// affirm sequence to reach them
	confirmed map[int64]struct{}
}

func NewProposalRecord() *ProposalRecord {
	r := &ProposalRecord{}
	r.Reset()
	return r
}

// Reset drops every tracked proposal and both counters
func (r *ProposalRecord) Reset() {
	r.ProposalInfoMap = make(ProposalInfoMap)
	r.confirmed = make(map[int64]struct{})
	r.MaxSeq = EmptySeq
	r.AffirmMaxSeq = EmptySeq
}

func (r *ProposalRecord) Get(seq int64) (*ProposalInfo, bool) {
	info, ok := r.ProposalInfoMap[seq]
	return info, ok
}

// LatestSeq is the highest sequence this record knows about, generated or observed
func (r *ProposalRecord) LatestSeq() int64 {
	latest := r.MaxSeq
	for seq := range r.ProposalInfoMap {
		if seq > latest {
			latest = seq
		}
	}
	return latest
}

func (r *ProposalRecord) seed(affirm int64) {
	r.Reset()
	if affirm < EmptySeq {
		affirm = EmptySeq
	}
	r.AffirmMaxSeq = affirm
	r.MaxSeq = affirm
}

// observe inserts a proposal read from chain. Entries at or below the affirm
// sequence are ignored, known entries may only move to a later status, and
// new entries must extend LatestSeq by exactly one.
func (r *ProposalRecord) observe(info *ProposalInfo) error {
	if info.Seq <= r.AffirmMaxSeq {
		return nil
	}

	latest := r.LatestSeq()
	switch {
	case info.Seq > latest+1:
		return &SequenceGapError{Type: info.Type, Expected: latest + 1, Got: info.Seq}
	case info.Seq <= latest:
		if old, ok := r.ProposalInfoMap[info.Seq]; ok && old.Status >= info.Status {
			return nil
		}
	}

	r.ProposalInfoMap[info.Seq] = info
	switch info.Status {
	case ProposalStatusConfirmed:
		r.confirm(info.Seq)
	case ProposalStatusVoted:
		r.raiseVoted()
	}
	return nil
}

// accept records a vote this chain submitted
func (r *ProposalRecord) accept(info *ProposalInfo) {
	if info.Seq <= r.AffirmMaxSeq {
		return
	}
	r.ProposalInfoMap[info.Seq] = info
	if info.Seq > r.MaxSeq {
		r.MaxSeq = info.Seq
	}
}

func (r *ProposalRecord) raiseVoted() {
	for {
		next, ok := r.ProposalInfoMap[r.MaxSeq+1]
		if !ok || next.Status < ProposalStatusVoted {
			return
		}
		r.MaxSeq++
	}
}

// confirm marks seq as confirmed and advances AffirmMaxSeq over every
// contiguous confirmed sequence.
func (r *ProposalRecord) confirm(seq int64) {
	if seq <= r.AffirmMaxSeq {
		return
	}
	r.confirmed[seq] = struct{}{}
	r.settle()
}

// advanceAffirm moves AffirmMaxSeq to an on-chain view that is ahead of ours
func (r *ProposalRecord) advanceAffirm(seq int64) bool {
	if seq <= r.AffirmMaxSeq {
		return false
	}
	r.AffirmMaxSeq = seq
	r.settle()
	return true
}

func (r *ProposalRecord) settle() {
	for {
		if _, ok := r.confirmed[r.AffirmMaxSeq+1]; !ok {
			break
		}
		r.AffirmMaxSeq++
	}
	if r.AffirmMaxSeq > r.MaxSeq {
		r.MaxSeq = r.AffirmMaxSeq
	}
	for seq := range r.confirmed {
		if seq <= r.AffirmMaxSeq {
			delete(r.confirmed, seq)
		}
	}
	for seq := range r.ProposalInfoMap {
		if seq <= r.AffirmMaxSeq {
			delete(r.ProposalInfoMap, seq)
		}
	}
	r.raiseVoted()
}

// Snapshot is a copy of the record counters safe to hand out
type Snapshot struct {
	MaxSeq       int64 `json:"maxSeq"`
	AffirmMaxSeq int64 `json:"affirmMaxSeq"`
	LatestSeq    int64 `json:"latestSeq"`
	Tracked      int   `json:"tracked"`
}

func (r *ProposalRecord) snapshot() Snapshot {
	return Snapshot{
		MaxSeq:       r.MaxSeq,
		AffirmMaxSeq: r.AffirmMaxSeq,
		LatestSeq:    r.LatestSeq(),
		Tracked:      len(r.ProposalInfoMap),
	}
}
