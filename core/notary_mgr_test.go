// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mapprotocol/compass-notary/pkg/msg"
	"github.com/stretchr/testify/require"
)

type mockChain struct {
	cfg     *ChainConfig
	peer    Chain
	fast    int32
	slow    int32
	stopped int32
	linkErr error
}

func (m *mockChain) Id() msg.ChainId { return m.cfg.Id }
func (m *mockChain) Name() string { return m.cfg.Name }
func (m *mockChain) Index() int { return m.cfg.Index }
func (m *mockChain) SetPeerChain(c Chain) error {
	if m.linkErr != nil {
		return m.linkErr
	}
	m.peer = c
	return nil
}
func (m *mockChain) OnFastTimer(int64) { atomic.AddInt32(&m.fast, 1) }
func (m *mockChain) OnSlowTimer(int64) { atomic.AddInt32(&m.slow, 1) }
func (m *mockChain) Stop() { atomic.AddInt32(&m.stopped, 1) }

func pairConfigs() []*ChainConfig {
	return []*ChainConfig{
		{Name: "map", Id: 22776, Index: 0, Peer: 56},
		{Name: "bsc", Id: 56, Index: 1, Peer: 22776},
	}
}

type factory struct {
	lock    sync.Mutex
	created []*mockChain
	failOn  msg.ChainId
	linkErr error
}

func (f *factory) create(cfg *ChainConfig) (Chain, error) {
	if cfg.Id == f.failOn {
		return nil, errors.New("dial failed")
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	c := &mockChain{cfg: cfg, linkErr: f.linkErr}
	f.created = append(f.created, c)
	return c, nil
}

func TestValidateChainConfigs(t *testing.T) {
	require.NoError(t, ValidateChainConfigs(pairConfigs()))

	tests := []struct {
		name string
		edit func([]*ChainConfig) []*ChainConfig
		want error
	}{
		{"single chain", func(c []*ChainConfig) []*ChainConfig { return c[:1] }, ErrTooFewChains},
		{"duplicate id", func(c []*ChainConfig) []*ChainConfig { c[1].Id = 22776; return c }, ErrDuplicateChain},
		{"duplicate index", func(c []*ChainConfig) []*ChainConfig { c[1].Index = 0; return c }, ErrDuplicateIndex},
		{"self peer", func(c []*ChainConfig) []*ChainConfig { c[0].Peer = 22776; return c }, ErrSelfPeer},
		{"unknown peer", func(c []*ChainConfig) []*ChainConfig { c[0].Peer = 1; return c }, ErrUnknownPeer},
		{"asymmetric", func(c []*ChainConfig) []*ChainConfig {
			return append(c, &ChainConfig{Name: "eth", Id: 1, Index: 2, Peer: 56})
		}, ErrAsymmetricPeer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChainConfigs(tt.edit(pairConfigs()))
			require.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestNotaryMgrLifecycle(t *testing.T) {
	f := &factory{}
	m := NewNotaryMgr(pairConfigs(), f.create, 5*time.Millisecond, 10*time.Millisecond, make(chan error))
	require.NoError(t, m.Initialize())
	require.True(t, errors.Is(m.Initialize(), ErrAlreadyInitialized))

	require.Len(t, f.created, 2)
	require.Same(t, f.created[1], f.created[0].peer)
	require.Same(t, f.created[0], f.created[1].peer)

	c, ok := m.Chain(56)
	require.True(t, ok)
	require.Equal(t, "bsc", c.Name())
	require.Len(t, m.Chains(), 2)

	require.Eventually(t, func() bool {
		return m.Health().UpdateTimes >= 2 && atomic.LoadInt32(&f.created[1].slow) >= 1
	}, time.Second, 5*time.Millisecond)
	for _, chain := range f.created {
		require.GreaterOrEqual(t, atomic.LoadInt32(&chain.fast), int32(2))
	}

	m.Exit()
	m.Exit()
	for _, chain := range f.created {
		require.Equal(t, int32(1), atomic.LoadInt32(&chain.stopped))
	}
	require.Equal(t, 0, m.Health().Chains)
}

func TestNotaryMgrOnTimerFansOut(t *testing.T) {
	f := &factory{}
	m := NewNotaryMgr(pairConfigs(), f.create, time.Hour, time.Hour, nil)
	require.NoError(t, m.Initialize())
	defer m.Exit()

	m.OnTimer(1234)
	m.OnSlowTimer(1234)
	for _, chain := range f.created {
		require.Equal(t, int32(1), atomic.LoadInt32(&chain.fast))
		require.Equal(t, int32(0), atomic.LoadInt32(&chain.slow))
	}
	h := m.Health()
	require.Equal(t, int64(1234), h.LastUpdateTime)
	require.Equal(t, uint64(1), h.UpdateTimes)
}

func TestNotaryMgrPartialInitialize(t *testing.T) {
	f := &factory{failOn: 56}
	m := NewNotaryMgr(pairConfigs(), f.create, time.Hour, time.Hour, nil)
	require.Error(t, m.Initialize())

	require.Len(t, f.created, 1)
	require.Equal(t, int32(1), atomic.LoadInt32(&f.created[0].stopped))
	require.Equal(t, 0, m.Registry.Len())
	m.Exit()
	require.Equal(t, int32(1), atomic.LoadInt32(&f.created[0].stopped))
}

func TestNotaryMgrLinkFailure(t *testing.T) {
	f := &factory{linkErr: errors.New("wrong peer type")}
	m := NewNotaryMgr(pairConfigs(), f.create, time.Hour, time.Hour, nil)
	require.Error(t, m.Initialize())
	for _, chain := range f.created {
		require.Equal(t, int32(1), atomic.LoadInt32(&chain.stopped))
	}
}

func TestNotaryMgrInvalidSet(t *testing.T) {
	f := &factory{}
	m := NewNotaryMgr(pairConfigs()[:1], f.create, time.Hour, time.Hour, nil)
	err := m.Initialize()
	require.True(t, errors.Is(err, ErrTooFewChains))
	require.Empty(t, f.created)
}

func TestNotaryMgrStartStopsOnFatalError(t *testing.T) {
	f := &factory{}
	sysErr := make(chan error, 1)
	m := NewNotaryMgr(pairConfigs(), f.create, time.Hour, time.Hour, sysErr)
	require.NoError(t, m.Initialize())

	sysErr <- errors.New("boom")
	m.Start()
	for _, chain := range f.created {
		require.Equal(t, int32(1), atomic.LoadInt32(&chain.stopped))
	}
}
