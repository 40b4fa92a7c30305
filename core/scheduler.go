// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/ChainSafe/log15"
)

// TimerFunc receives the tick time in unix millis
type TimerFunc func(now int64)

type timer struct {
	name     string
	interval time.Duration
	fn       TimerFunc
}

// Scheduler fires every registered timer on its own goroutine. A timer never
// overlaps with itself: ticks that arrive while the callback runs are dropped.
type Scheduler struct {
	log     log15.Logger
	timers  []*timer
	stop    chan struct{}
	wg      sync.WaitGroup
	lock    sync.Mutex
	started bool
	stopped bool
}

func NewScheduler(log log15.Logger) *Scheduler {
	return &Scheduler{
		log:  log,
		stop: make(chan struct{}),
	}
}

func (s *Scheduler) Register(name string, interval time.Duration, fn TimerFunc) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s %v", ErrInvalidInterval, name, interval)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.started {
		return ErrSchedulerStarted
	}
	s.timers = append(s.timers, &timer{name: name, interval: interval, fn: fn})
	return nil
}

func (s *Scheduler) Start() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	for _, t := range s.timers {
		s.wg.Add(1)
		go s.run(t)
	}
}

func (s *Scheduler) run(t *timer) {
	defer s.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	s.log.Debug("Timer started", "timer", t.name, "interval", t.interval)
	for {
		select {
		case <-s.stop:
			s.log.Debug("Timer stopped", "timer", t.name)
			return
		case tick := <-ticker.C:
			// stop wins over a tick that raced with it
			select {
			case <-s.stop:
				return
			default:
			}
			t.fn(tick.UnixMilli())
		}
	}
}

// Stop halts delivery and waits for running callbacks to return. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.lock.Lock()
	if s.stopped {
		s.lock.Unlock()
		return
	}
	s.stopped = true
	close(s.stop)
	s.lock.Unlock()

	s.wg.Wait()
}
