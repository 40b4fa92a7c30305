package util

import "sync"

// RWMap holds the last unix second each key was seen
type RWMap struct {
	sync.RWMutex
	m map[string]int64
}

func NewRWMap() *RWMap {
	return &RWMap{
		m: make(map[string]int64),
	}
}

func (m *RWMap) Get(k string) (int64, bool) {
	m.RLock()
	defer m.RUnlock()
	v, existed := m.m[k]
	return v, existed
}

func (m *RWMap) Set(k string, v int64) {
	m.Lock()
	defer m.Unlock()
	m.m[k] = v
}

// SetIfOlder stores now for k unless the stored value is within window of now.
// It reports whether the value was stored.
func (m *RWMap) SetIfOlder(k string, now, window int64) bool {
	m.Lock()
	defer m.Unlock()
	if v, ok := m.m[k]; ok && now-v < window {
		return false
	}
	m.m[k] = now
	return true
}

func (m *RWMap) Delete(k string) {
	m.Lock()
	defer m.Unlock()
	delete(m.m, k)
}

func (m *RWMap) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.m)
}
