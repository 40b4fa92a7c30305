package report

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

type fakePusher struct {
	lock   sync.Mutex
	keys   []string
	values [][]byte
	err    error
}

func (f *fakePusher) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for _, v := range values {
		f.keys = append(f.keys, key)
		f.values = append(f.values, v.([]byte))
	}
	return redis.NewIntResult(int64(len(f.values)), nil)
}

func TestReportFlushesOnStop(t *testing.T) {
	pusher := &fakePusher{}
	r := New(pusher, "")
	r.Start()
	for seq := int64(0); seq < 3; seq++ {
		r.Add(&Data{Chain: "map", Event: EventVote, Type: "outbound", Seq: seq, Hash: "0x1"})
	}
	r.Stop()
	r.Stop()

	pusher.lock.Lock()
	defer pusher.lock.Unlock()
	require.Len(t, pusher.values, 3)
	seen := make(map[int64]bool)
	for i, raw := range pusher.values {
		require.Equal(t, ListKey, pusher.keys[i])
		var data Data
		require.NoError(t, json.Unmarshal(raw, &data))
		require.Equal(t, "map", data.Chain)
		require.NotZero(t, data.Time)
		seen[data.Seq] = true
	}
	require.Len(t, seen, 3)
}

func TestReportDropsWhenFull(t *testing.T) {
	r := New(&fakePusher{}, "custom")
	for i := 0; i < cap(r.ch)+10; i++ {
		r.Add(&Data{Chain: "map", Event: EventReset, Seq: -1})
	}
	require.Len(t, r.ch, cap(r.ch))
}

func TestReportError(t *testing.T) {
	r := New(&fakePusher{err: errors.New("down")}, "custom")
	require.Error(t, r.Report(context.Background(), &Data{Chain: "map"}))
}
