// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package notary

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ChainSafe/log15"
	lru "github.com/hashicorp/golang-lru"
	"github.com/mapprotocol/compass-notary/core"
	"github.com/mapprotocol/compass-notary/internal/metrics"
	"github.com/mapprotocol/compass-notary/internal/report"
	"github.com/mapprotocol/compass-notary/pkg/msg"
	"github.com/mapprotocol/compass-notary/pkg/util"
	"github.com/pkg/errors"
)

// SeqStore persists a single number, pkg/blockstore satisfies it
type SeqStore interface {
	StoreBlock(*big.Int) error
	TryLoadLatestBlock() (*big.Int, error)
}

type Reporter interface {
	Add(data *report.Data)
}

type Option func(*ChainObj)

func WithLogger(log log15.Logger) Option {
	return func(c *ChainObj) { c.log = log }
}

// WithCheckpoint persists affirmed sequences; fresh ignores what was stored before
func WithCheckpoint(send, recv SeqStore, fresh bool) Option {
	return func(c *ChainObj) {
		c.sendStore, c.recvStore = send, recv
		c.freshStart = fresh
	}
}

func WithReporter(r Reporter) Option {
	return func(c *ChainObj) { c.reporter = r }
}

func WithMetrics(m *metrics.ChainMetrics) Option {
	return func(c *ChainObj) { c.metrics = m }
}

func WithAlarm(fn func(ctx context.Context, msg string)) Option {
	return func(c *ChainObj) { c.alarm = fn }
}

// WithClock replaces the unix millis source used for transaction bookkeeping
func WithClock(fn func() int64) Option {
	return func(c *ChainObj) { c.clock = fn }
}

// ChainObj is the proposal state machine of one chain. Every exported method
// takes the chain lock itself; records never leave the object.
type ChainObj struct {
	lock sync.Mutex
	cfg  *ChainConfigure
	log  log15.Logger
	rpc  ChainRpc
	peer *ChainObj

	proposalInfoVector []*ProposalInfo // built, not yet submitted
	inFlight           []*ProposalInfo // being submitted outside the lock
	sendRecord         *ProposalRecord
	recvRecord         *ProposalRecord
	errorTxTimes       int // consecutive failures, -1 while not tracking
	openTx             map[string]*txRecord // processing, or failed above the affirm sequence
	txHistory          *lru.Cache           // settled records
	sendNotaries       *NotaryList
	recvNotaries       *NotaryList
	commInfo           *CommContractInfo
	seeded             bool
	epoch              uint64
	resets             uint64
	lastFastTick       int64
	lastSlowTick       int64

	sendStore, recvStore SeqStore
	freshStart           bool
	checkpoint           *checkpoint

	reporter Reporter
	metrics  *metrics.ChainMetrics
	alarm    func(ctx context.Context, msg string)
	clock    func() int64
	stopOnce sync.Once
}

var _ core.Chain = (*ChainObj)(nil)

func NewChainObj(cfg *ChainConfigure, rpc ChainRpc, opts ...Option) (*ChainObj, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rpc == nil {
		return nil, fmt.Errorf("%w: chain %s has no rpc", ErrInvalidConfigure, cfg.Name)
	}
	history, err := lru.New(cfg.TxHistorySize)
	if err != nil {
		return nil, err
	}
	sendNotaries, err := NewNotaryList(cfg.NotaryListCapacity)
	if err != nil {
		return nil, err
	}
	recvNotaries, err := NewNotaryList(cfg.NotaryListCapacity)
	if err != nil {
		return nil, err
	}

	c := &ChainObj{
		cfg:          cfg,
		rpc:          rpc,
		sendRecord:   NewProposalRecord(),
		recvRecord:   NewProposalRecord(),
		openTx:       make(map[string]*txRecord),
		txHistory:    history,
		sendNotaries: sendNotaries,
		recvNotaries: recvNotaries,
		alarm:        util.Alarm,
		clock:        func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = log15.Root().New("chain", cfg.Name)
	}
	if err = c.loadCheckpoint(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ChainObj) Id() msg.ChainId { return c.cfg.Id }

func (c *ChainObj) Name() string { return c.cfg.Name }

func (c *ChainObj) Index() int { return c.cfg.Index }

func (c *ChainObj) Configure() *ChainConfigure { return c.cfg }

// SetPeerChain links the configured peer. It may be called once.
func (c *ChainObj) SetPeerChain(peer core.Chain) error {
	p, ok := peer.(*ChainObj)
	if !ok || p == nil {
		return fmt.Errorf("%w: %T", ErrInvalidPeer, peer)
	}
	if p == c || p.cfg.Index == c.cfg.Index {
		return fmt.Errorf("%w: %s cannot pair with itself", ErrInvalidPeer, c.cfg.Name)
	}
	if p.cfg.Id != c.cfg.Peer {
		return fmt.Errorf("%w: %s expects peer %d, got %d", ErrInvalidPeer, c.cfg.Name, c.cfg.Peer, p.cfg.Id)
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if c.peer != nil {
		return ErrPeerAlreadyLinked
	}
	c.peer = p
	c.log.Info("Peer chain linked", "peer", p.cfg.Name)
	return nil
}

func (c *ChainObj) peerChain() *ChainObj {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.peer
}

// lockPair takes both chain locks in index order and returns the unlock
func lockPair(a, b *ChainObj) func() {
	first, second := a, b
	if b.cfg.Index < a.cfg.Index {
		first, second = b, a
	}
	first.lock.Lock()
	second.lock.Lock()
	return func() {
		second.lock.Unlock()
		first.lock.Unlock()
	}
}

func (c *ChainObj) record(typ ProposalType) *ProposalRecord {
	if typ == ProposalTypeOutbound {
		return c.sendRecord
	}
	return c.recvRecord
}

// OnFastTimer drives the proposal pipeline: results, reads, builds, submits
func (c *ChainObj) OnFastTimer(now int64) {
	ctx := context.Background()
	c.lock.Lock()
	c.lastFastTick = now
	c.lock.Unlock()

	c.pollTxResults(ctx)
	for _, typ := range ProposalTypes {
		if err := c.RequestProposal(ctx, typ); err != nil && !quiet(err) {
			c.log.Warn("Request proposal failed", "type", typ, "err", err)
		}
		if err := c.CreateVotingProposals(typ); err != nil && !quiet(err) {
			c.log.Warn("Create voting proposals failed", "type", typ, "err", err)
		}
	}
	if err := c.CommitVotingProposals(ctx); err != nil && !quiet(err) {
		c.log.Warn("Commit voting proposals failed", "err", err)
	}
}

// OnSlowTimer refreshes contract state, checks stuck transactions and saves the checkpoint
func (c *ChainObj) OnSlowTimer(now int64) {
	ctx := context.Background()
	c.lock.Lock()
	c.lastSlowTick = now
	c.lock.Unlock()

	if err := c.RequestCommContractInfo(ctx); err != nil {
		c.log.Warn("Request contract info failed", "err", err)
	}
	c.CheckTxError(now)
	if err := c.saveCheckpoint(); err != nil {
		c.log.Error("Save checkpoint failed", "err", err)
	}
}

// quiet errors are expected while a chain is warming up or was just reset
func quiet(err error) bool {
	return errors.Is(err, ErrNotSeeded) || errors.Is(err, ErrEpochChanged) || errors.Is(err, ErrPeerNotLinked)
}

// GetProposalInfo looks up a tracked proposal
func (c *ChainObj) GetProposalInfo(typ ProposalType, seq int64) (*ProposalInfo, bool) {
	if !typ.Valid() {
		return nil, false
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.record(typ).Get(seq)
}

func (c *ChainObj) Stop() {
	c.stopOnce.Do(func() {
		c.rpc.Close()
		c.log.Info("Chain stopped")
	})
}

type ChainStatus struct {
	Name         string      `json:"name"`
	Id           msg.ChainId `json:"id"`
	Peer         msg.ChainId `json:"peer"`
	Seeded       bool        `json:"seeded"`
	Epoch        uint64      `json:"epoch"`
	Resets       uint64      `json:"resets"`
	ErrorTxTimes int         `json:"errorTxTimes"`
	Send         Snapshot    `json:"send"`
	Recv         Snapshot    `json:"recv"`
	Pending      int         `json:"pending"`
	OpenTx       int         `json:"openTx"`
	History      int         `json:"history"`
	SendNotaries int         `json:"sendNotaries"`
	RecvNotaries int         `json:"recvNotaries"`
	BlockHeight  uint64      `json:"blockHeight"`
	LastFastTick int64       `json:"lastFastTick"`
	LastSlowTick int64       `json:"lastSlowTick"`
}

func (c *ChainObj) Status() ChainStatus {
	c.lock.Lock()
	defer c.lock.Unlock()
	st := ChainStatus{
		Name:         c.cfg.Name,
		Id:           c.cfg.Id,
		Peer:         c.cfg.Peer,
		Seeded:       c.seeded,
		Epoch:        c.epoch,
		Resets:       c.resets,
		ErrorTxTimes: c.errorTxTimes,
		Send:         c.sendRecord.snapshot(),
		Recv:         c.recvRecord.snapshot(),
		Pending:      len(c.proposalInfoVector),
		OpenTx:       len(c.openTx),
		History:      c.txHistory.Len(),
		SendNotaries: c.sendNotaries.Len(),
		RecvNotaries: c.recvNotaries.Len(),
		LastFastTick: c.lastFastTick,
		LastSlowTick: c.lastSlowTick,
	}
	if c.commInfo != nil {
		st.BlockHeight = c.commInfo.BlockHeight
	}
	return st
}

func (c *ChainObj) raise(format string, args ...interface{}) {
	text := fmt.Sprintf("notary chain %s: %s", c.cfg.Name, fmt.Sprintf(format, args...))
	go c.alarm(context.Background(), text)
}

func (c *ChainObj) publish(event string, typ ProposalType, seq int64, hash string) {
	if c.reporter == nil {
		return
	}
	data := &report.Data{Chain: c.cfg.Name, Event: event, Seq: seq, Hash: hash}
	if typ.Valid() {
		data.Type = typ.String()
	}
	c.reporter.Add(data)
}

func (c *ChainObj) updateMetricsLocked() {
	c.metrics.Sequences(ProposalTypeOutbound.String(), c.sendRecord.MaxSeq, c.sendRecord.AffirmMaxSeq)
	c.metrics.Sequences(ProposalTypeInbound.String(), c.recvRecord.MaxSeq, c.recvRecord.AffirmMaxSeq)
	c.metrics.ErrorTxTimes(c.errorTxTimes)
}
