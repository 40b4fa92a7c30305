// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package core

import "errors"

var (
	ErrTooFewChains       = errors.New("at least two chains are required")
	ErrDuplicateChain     = errors.New("duplicate chain id")
	ErrDuplicateIndex     = errors.New("duplicate chain index")
	ErrUnknownPeer        = errors.New("peer chain not configured")
	ErrSelfPeer           = errors.New("chain configured as its own peer")
	ErrAsymmetricPeer     = errors.New("peer chain does not point back")
	ErrAlreadyInitialized = errors.New("notary manager already initialized")
	ErrSchedulerStarted   = errors.New("scheduler already started")
	ErrInvalidInterval    = errors.New("timer interval must be positive")
)
