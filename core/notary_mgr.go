// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package core

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ChainSafe/log15"
	"github.com/mapprotocol/compass-notary/pkg/msg"
	"github.com/pkg/errors"
)

const (
	DefaultFastInterval = 3 * time.Second
	DefaultSlowInterval = 30 * time.Second
)

// NotaryMgr owns every chain and is the single entry point of the fast timer
type NotaryMgr struct {
	// accessed atomically, kept first for alignment
	lastUpdateTime int64 // unix millis of the last completed fast tick
	updateTimes    uint64

	Registry  *Registry
	cfgs      []*ChainConfig
	create    CreateChain
	fast      time.Duration
	slow      time.Duration
	scheduler *Scheduler
	log       log15.Logger
	sysErr    <-chan error

	lock        sync.Mutex
	initialized bool
	exited      bool
}

func NewNotaryMgr(cfgs []*ChainConfig, create CreateChain, fast, slow time.Duration, sysErr <-chan error) *NotaryMgr {
	if fast <= 0 {
		fast = DefaultFastInterval
	}
	if slow <= 0 {
		slow = DefaultSlowInterval
	}
	return &NotaryMgr{
		Registry: NewRegistry(),
		cfgs:     cfgs,
		create:   create,
		fast:     fast,
		slow:     slow,
		log:      log15.New("system", "notary"),
		sysErr:   sysErr,
	}
}

// ValidateChainConfigs checks that the configured chains form symmetric pairs
func ValidateChainConfigs(cfgs []*ChainConfig) error {
	if len(cfgs) < 2 {
		return fmt.Errorf("%w: got %d", ErrTooFewChains, len(cfgs))
	}
	byId := make(map[msg.ChainId]*ChainConfig, len(cfgs))
	byIndex := make(map[int]msg.ChainId, len(cfgs))
	for _, cfg := range cfgs {
		if _, ok := byId[cfg.Id]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateChain, cfg.Id)
		}
		if other, ok := byIndex[cfg.Index]; ok {
			return fmt.Errorf("%w: %d shared by %d and %d", ErrDuplicateIndex, cfg.Index, other, cfg.Id)
		}
		byId[cfg.Id] = cfg
		byIndex[cfg.Index] = cfg.Id
	}
	for _, cfg := range cfgs {
		if cfg.Peer == cfg.Id {
			return fmt.Errorf("%w: %d", ErrSelfPeer, cfg.Id)
		}
		peer, ok := byId[cfg.Peer]
		if !ok {
			return fmt.Errorf("%w: %d wants %d", ErrUnknownPeer, cfg.Id, cfg.Peer)
		}
		if peer.Peer != cfg.Id {
			return fmt.Errorf("%w: %d -> %d -> %d", ErrAsymmetricPeer, cfg.Id, peer.Id, peer.Peer)
		}
	}
	return nil
}

// Initialize builds every chain, links the pairs and starts the timers. On
// any failure everything built so far is released before returning.
func (m *NotaryMgr) Initialize() (err error) {
	m.lock.Lock()
	if m.initialized {
		m.lock.Unlock()
		return ErrAlreadyInitialized
	}
	m.initialized = true
	m.lock.Unlock()

	defer func() {
		if err != nil {
			m.Exit()
		}
	}()

	if err = ValidateChainConfigs(m.cfgs); err != nil {
		return errors.Wrap(err, "invalid chain set")
	}

	for _, cfg := range m.cfgs {
		chain, err := m.create(cfg)
		if err != nil {
			return errors.Wrapf(err, "create chain %s(%d)", cfg.Name, cfg.Id)
		}
		if err = m.Registry.Register(chain); err != nil {
			chain.Stop()
			return err
		}
		m.log.Info(fmt.Sprintf("Created %s chain", chain.Name()), "id", chain.Id(), "index", chain.Index())
	}

	for _, cfg := range m.cfgs {
		chain, _ := m.Registry.Get(cfg.Id)
		peer, _ := m.Registry.Get(cfg.Peer)
		if err = chain.SetPeerChain(peer); err != nil {
			return errors.Wrapf(err, "link %d with %d", cfg.Id, cfg.Peer)
		}
	}

	scheduler := NewScheduler(log15.New("system", "scheduler"))
	if err = scheduler.Register("fast", m.fast, m.OnTimer); err != nil {
		return err
	}
	for _, chain := range m.Registry.List() {
		if err = scheduler.Register("slow-"+chain.Name(), m.slow, chain.OnSlowTimer); err != nil {
			return err
		}
	}

	m.lock.Lock()
	if m.exited {
		m.lock.Unlock()
		return errors.New("notary manager exited during initialization")
	}
	m.scheduler = scheduler
	m.lock.Unlock()
	scheduler.Start()

	m.log.Info("Notary manager initialized", "chains", m.Registry.Len(), "fast", m.fast, "slow", m.slow)
	return nil
}

// Exit stops timer delivery and releases every chain. It is idempotent and
// safe after a partial Initialize.
func (m *NotaryMgr) Exit() {
	m.lock.Lock()
	if m.exited {
		m.lock.Unlock()
		return
	}
	m.exited = true
	scheduler := m.scheduler
	m.lock.Unlock()

	if scheduler != nil {
		scheduler.Stop()
	}
	for _, chain := range m.Registry.Clear() {
		chain.Stop()
	}
	m.log.Info("Notary manager exited")
}

// OnTimer fans the fast tick out to every chain and waits for all of them
func (m *NotaryMgr) OnTimer(now int64) {
	chains := m.Registry.List()
	wg := sync.WaitGroup{}
	for _, chain := range chains {
		wg.Add(1)
		go func(c Chain) {
			defer wg.Done()
			c.OnFastTimer(now)
		}(chain)
	}
	wg.Wait()

	atomic.StoreInt64(&m.lastUpdateTime, now)
	atomic.AddUint64(&m.updateTimes, 1)
}

// OnSlowTimer is a no-op; every chain has its own slow timer
func (m *NotaryMgr) OnSlowTimer(int64) {}

// Start blocks until a signal or a fatal error, then exits
func (m *NotaryMgr) Start() {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	// Block here and wait for a signal
	select {
	case err := <-m.sysErr:
		m.log.Error("FATAL ERROR. Shutting down.", "err", err)
	case <-sigc:
		m.log.Warn("Interrupt received, shutting down now.")
	}

	m.Exit()
}

func (m *NotaryMgr) Chain(id msg.ChainId) (Chain, bool) {
	return m.Registry.Get(id)
}

func (m *NotaryMgr) Chains() []Chain {
	return m.Registry.List()
}

type Health struct {
	LastUpdateTime int64  `json:"lastUpdateTime"`
	UpdateTimes    uint64 `json:"updateTimes"`
	Chains         int    `json:"chains"`
}

func (m *NotaryMgr) Health() Health {
	return Health{
		LastUpdateTime: atomic.LoadInt64(&m.lastUpdateTime),
		UpdateTimes:    atomic.LoadUint64(&m.updateTimes),
		Chains:         m.Registry.Len(),
	}
}
