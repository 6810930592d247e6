package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"group-scheduler/core/logger"

	"github.com/lib/pq"
)

// PGListener turns LISTEN/NOTIFY payloads produced by the
// availability_submissions trigger into hub events.
type PGListener struct {
	hub      *Hub
	listener *pq.Listener
	channel  string
	tables   []string
}

func NewPGListener(dsn string, channel string, hub *Hub, tables ...string) (*PGListener, error) {
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Error("PGListener:Event", "event", int(ev), "error", err)
		}
	})
	if err := listener.Listen(channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", channel, err)
	}

	logger.Info("PGListener:Listening", "channel", channel)
	return &PGListener{
		hub:      hub,
		listener: listener,
		channel:  channel,
		tables:   tables,
	}, nil
}

func (p *PGListener) SubscribeInsert(table string, filter Filter, callback func(InsertEvent)) (Unsubscribe, error) {
	return p.hub.SubscribeInsert(table, filter, callback)
}

// Run forwards notifications until ctx is done.
func (p *PGListener) Run(ctx context.Context) {
	defer func() {
		_ = p.listener.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-p.listener.Notify:
			if n == nil {
				// Reconnected: anything sent while down is lost.
				logger.Warn("PGListener:Reconnected", "channel", p.channel)
				for _, table := range p.tables {
					p.hub.Resync(table)
				}
				continue
			}
			event, err := DecodeNotification(n.Extra)
			if err != nil {
				logger.Error("PGListener:Decode", "payload", n.Extra, "error", err)
				continue
			}
			p.hub.Publish(event)
		case <-time.After(90 * time.Second):
			go func() {
				if err := p.listener.Ping(); err != nil {
					logger.Warn("PGListener:Ping", "error", err)
				}
			}()
		}
	}
}

func DecodeNotification(payload string) (InsertEvent, error) {
	var event InsertEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return InsertEvent{}, err
	}
	if event.Table == "" {
		return InsertEvent{}, fmt.Errorf("notification without table")
	}
	if event.Row == nil {
		event.Row = map[string]string{}
	}
	return event, nil
}
