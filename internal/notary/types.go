// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package notary

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// EmptySeq marks a record that has neither generated nor affirmed anything
const EmptySeq int64 = -1

type ProposalType uint8

const (
	ProposalTypeOutbound ProposalType = 1
	ProposalTypeInbound  ProposalType = 2
)

// ProposalTypes is the iteration order used by every tick
var ProposalTypes = []ProposalType{ProposalTypeOutbound, ProposalTypeInbound}

// Peer returns the complementary direction, the type whose record on the
// peer chain feeds votes of this type.
func (t ProposalType) Peer() ProposalType {
	switch t {
	case ProposalTypeOutbound:
		return ProposalTypeInbound
	case ProposalTypeInbound:
		return ProposalTypeOutbound
	default:
		return t
	}
}

func (t ProposalType) Valid() bool {
	return t == ProposalTypeOutbound || t == ProposalTypeInbound
}

func (t ProposalType) String() string {
	switch t {
	case ProposalTypeOutbound:
		return "outbound"
	case ProposalTypeInbound:
		return "inbound"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

func ParseProposalType(s string) (ProposalType, error) {
	switch strings.ToLower(s) {
	case "outbound", "send", "1":
		return ProposalTypeOutbound, nil
	case "inbound", "recv", "2":
		return ProposalTypeInbound, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownProposalType, s)
	}
}

type ProposalStatus uint8

const (
	ProposalStatusPending ProposalStatus = iota
	ProposalStatusVoted
	ProposalStatusConfirmed
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusPending:
		return "pending"
	case ProposalStatusVoted:
		return "voted"
	case ProposalStatusConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ProposalInfo is a single proposal as observed on chain or as built for a vote.
// Values are never mutated once created, a newer view replaces the map entry.
type ProposalInfo struct {
	Type    ProposalType   `json:"type"`
	Seq     int64          `json:"seq"`
	Payload []byte         `json:"payload"`
	Status  ProposalStatus `json:"status"`
}

// Hash is the keccak digest of type, seq and payload; status is excluded so
// the same proposal hashes identically across observations.
func (p *ProposalInfo) Hash() common.Hash {
	var buf [9]byte
	buf[0] = byte(p.Type)
	binary.BigEndian.PutUint64(buf[1:], uint64(p.Seq))

	h := sha3.NewLegacyKeccak256()
	h.Write(buf[:])
	h.Write(p.Payload)
	var out common.Hash
	h.Sum(out[:0])
	return out
}

func (p *ProposalInfo) withStatus(status ProposalStatus) *ProposalInfo {
	return &ProposalInfo{Type: p.Type, Seq: p.Seq, Payload: p.Payload, Status: status}
}

// ExecuteState tracks a submitted vote transaction. A vote is INITIAL until
// the first result query comes back, then PROCESSING until it settles.
type ExecuteState uint8

const (
	ExecuteStateInitial    ExecuteState = 1
	ExecuteStateProcessing ExecuteState = 2
	ExecuteStateFail       ExecuteState = 3
	ExecuteStateSuccess    ExecuteState = 4
)

// awaiting reports whether no terminal result has been applied yet
func (s ExecuteState) awaiting() bool {
	return s == ExecuteStateInitial || s == ExecuteStateProcessing
}

func (s ExecuteState) String() string {
	switch s {
	case ExecuteStateInitial:
		return "initial"
	case ExecuteStateProcessing:
		return "processing"
	case ExecuteStateFail:
		return "fail"
	case ExecuteStateSuccess:
		return "success"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

type txRecord struct {
	typ         ProposalType
	seq         int64
	state       ExecuteState
	submittedAt int64 // unix millis
	finishedAt  int64
}
