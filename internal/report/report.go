package report

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	log "github.com/ChainSafe/log15"
	"github.com/go-redis/redis/v8"
)

var (
	ListKey = "notary_tx_result"
)

const (
	EventVote    = "vote"
	EventSuccess = "success"
	EventFail    = "fail"
	EventReset   = "reset"
)

type Data struct {
	Chain string `json:"chain"`
	Event string `json:"event"`
	Type  string `json:"type,omitempty"`
	Seq   int64  `json:"seq"`
	Hash  string `json:"hash,omitempty"`
	Time  int64  `json:"time"`
}

// Pusher is the part of a redis client the reporter uses
type Pusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Report pushes notary events to a redis list from a single goroutine
type Report struct {
	log    log.Logger
	client Pusher
	key    string
	ch     chan *Data
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func New(client Pusher, key string) *Report {
	if key == "" {
		key = ListKey
	}
	return &Report{
		log:    log.Root().New("func", "reporter"),
		client: client,
		key:    key,
		ch:     make(chan *Data, 100),
		stop:   make(chan struct{}),
	}
}

// Add queues data without blocking; data is dropped when the queue is full
func (r *Report) Add(data *Data) {
	if data.Time == 0 {
		data.Time = time.Now().UnixMilli()
	}
	select {
	case r.ch <- data:
	default:
		r.log.Warn("Report queue full, dropping", "chain", data.Chain, "event", data.Event, "seq", data.Seq)
	}
}

func (r *Report) Report(ctx context.Context, data *Data) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, r.key, body).Err()
}

func (r *Report) Start() {
	r.log.Info("Reporter started", "key", r.key)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.log.Info("Reporter stopped")
		for {
			select {
			case <-r.stop:
				r.drain()
				return
			case data := <-r.ch:
				r.push(data)
			}
		}
	}()
}

// drain pushes what is still queued at stop
func (r *Report) drain() {
	for {
		select {
		case data := <-r.ch:
			r.push(data)
		default:
			return
		}
	}
}

func (r *Report) push(data *Data) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Report(ctx, data); err != nil {
		r.log.Error("report error", "err", err)
	}
}

func (r *Report) Stop() {
	r.once.Do(func() { close(r.stop) })
	r.wg.Wait()
}
