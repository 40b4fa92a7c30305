package util

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/ChainSafe/log15"
)

// AlarmInterval suppresses repeats of the same message
var AlarmInterval = 5 * time.Minute

var (
	prefix, hooksUrl = "", ""
	m                = NewRWMap()
)

func Init(env, hooks string) {
	prefix = env
	hooksUrl = hooks
}

// Alarm posts msg to the configured webhook, at most once per AlarmInterval per message
func Alarm(ctx context.Context, msg string) {
	if hooksUrl == "" {
		log.Debug("Alarm hooks is empty", "msg", msg)
		return
	}
	if !m.SetIfOlder(msg, time.Now().Unix(), int64(AlarmInterval/time.Second)) {
		return
	}

	body, err := json.Marshal(map[string]interface{}{
		"text": fmt.Sprintf("%s %s", prefix, msg),
	})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hooksUrl, bytes.NewReader(body))
	if err != nil {
		log.Warn("Build alarm request failed", "err", err)
		return
	}
	req.Header.Set("Content-type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Warn("Send alarm failed", "err", err)
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("Read alarm resp failed", "err", err)
		return
	}
	log.Debug("Send alarm message", "resp", string(data))
}
