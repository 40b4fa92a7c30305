// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package core

import (
	"fmt"
	"sync"

	"github.com/mapprotocol/compass-notary/pkg/msg"
)

// Registry indexes chains by id. NotaryMgr is its only owner.
type Registry struct {
	chains map[msg.ChainId]Chain
	order  []Chain
	lock   *sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		chains: make(map[msg.ChainId]Chain),
		order:  make([]Chain, 0),
		lock:   &sync.RWMutex{},
	}
}

func (r *Registry) Register(c Chain) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.chains[c.Id()]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateChain, c.Id())
	}
	r.chains[c.Id()] = c
	r.order = append(r.order, c)
	return nil
}

func (r *Registry) Get(id msg.ChainId) (Chain, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	c, ok := r.chains[id]
	return c, ok
}

// List returns chains in registration order
func (r *Registry) List() []Chain {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]Chain, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.order)
}

// Clear drops every chain and returns what was registered
func (r *Registry) Clear() []Chain {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := r.order
	r.chains = make(map[msg.ChainId]Chain)
	r.order = make([]Chain, 0)
	return out
}
