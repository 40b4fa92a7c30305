package util

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRWMapSetIfOlder(t *testing.T) {
	m := NewRWMap()

	require.True(t, m.SetIfOlder("reset", 100, 300))
	require.False(t, m.SetIfOlder("reset", 200, 300))
	require.True(t, m.SetIfOlder("other", 200, 300))
	require.True(t, m.SetIfOlder("reset", 400, 300))

	v, ok := m.Get("reset")
	require.True(t, ok)
	require.Equal(t, int64(400), v)
	require.Equal(t, 2, m.Len())

	m.Delete("reset")
	_, ok = m.Get("reset")
	require.False(t, ok)
}

func TestAlarmWithoutHooks(t *testing.T) {
	Init("test", "")
	// must return without touching the network
	Alarm(context.Background(), "nothing configured")
}
