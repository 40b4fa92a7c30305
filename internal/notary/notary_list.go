// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package notary

import "fmt"

// MaxNotaryListCapacity bounds every notary list a chain may hold
const MaxNotaryListCapacity = 100

// NotaryList is a snapshot of notary addresses with a capacity fixed at construction
type NotaryList struct {
	capacity int
	items    []string
}

func NewNotaryList(capacity int) (*NotaryList, error) {
	if capacity <= 0 || capacity > MaxNotaryListCapacity {
		return nil, fmt.Errorf("%w: capacity %d out of range (1..%d)", ErrInvalidConfigure, capacity, MaxNotaryListCapacity)
	}
	return &NotaryList{capacity: capacity, items: make([]string, 0, capacity)}, nil
}

func (l *NotaryList) Capacity() int { return l.capacity }

func (l *NotaryList) Len() int { return len(l.items) }

// Set replaces the snapshot. A list larger than the capacity is rejected
// whole and the previous snapshot is kept.
func (l *NotaryList) Set(notaries []string) error {
	if len(notaries) > l.capacity {
		return fmt.Errorf("%w: %d notaries, capacity %d", ErrNotaryListOverflow, len(notaries), l.capacity)
	}
	l.items = append(l.items[:0], notaries...)
	return nil
}

func (l *NotaryList) Clear() {
	l.items = l.items[:0]
}

func (l *NotaryList) Items() []string {
	out := make([]string, len(l.items))
	copy(out, l.items)
	return out
}
