package web

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "log/slog"

	ws "github.com/gorilla/websocket"

	"gpthome/internal/eventlog"
)

// Watch follows the /events stream at url and calls fn for every entry.
// A dropped connection is redialled after reconn; reconn <= 0 returns the
// error instead. Watch returns nil when ctx is done.
func Watch(ctx context.Context, url string, reconn time.Duration, fn func(eventlog.Entry)) error {
	for {
		err := watchOnce(ctx, url, fn)
		if ctx.Err() != nil {
			return nil
		}
		if reconn <= 0 {
			return err
		}
		log.Debug("Event stream dropped, reconnecting", "url", url, "err", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconn):
		}
	}
}

func watchOnce(ctx context.Context, url string, fn func(eventlog.Entry)) error {
	conn, _, err := ws.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if isClosed(err) {
				return fmt.Errorf("stream closed: %w", err)
			}
			return fmt.Errorf("read: %w", err)
		}

		var e eventlog.Entry
		if err := json.Unmarshal(msg, &e); err != nil {
			log.Warn("Skipping malformed event", "msg", string(msg), "err", err)
			continue
		}
		fn(e)
	}
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
