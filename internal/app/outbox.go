package app

import (
	"sync"

	"go.uber.org/zap"

	"botwatch/config"
)

// transport is the send side of the bot stream connection.
type transport interface {
	Send(v interface{}) error
	IsConnected() bool
}

// Outbox delivers command frames to the bot, buffering them in order while
// the connection is down. The buffer is bounded; when full the oldest queued
// command is discarded.
type Outbox struct {
	logger *zap.Logger
	tr     transport
	cap    int

	mu      sync.Mutex
	queue   []OutboundMessage
	dropped uint64
}

func NewOutbox(logger *zap.Logger, cfg config.OutboxConfig, tr transport) *Outbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Outbox{logger: logger, tr: tr, cap: cfg.Capacity}
}

// Send transmits the message immediately when connected, otherwise queues it.
// A failed transmit also queues, so the command survives a connection that
// died mid-write.
func (o *Outbox) Send(msg OutboundMessage) {
	if o.tr.IsConnected() {
		err := o.tr.Send(msg)
		if err == nil {
			return
		}
		o.logger.Warn("send failed, queueing command",
			zap.String("type", msg.Type), zap.Error(err))
	}
	o.enqueue(msg)
}

// SendCommand queues or transmits a control command for the bot.
func (o *Outbox) SendCommand(command string, params map[string]any) {
	o.Send(OutboundMessage{Type: "command", Command: command, Params: params})
}

// SendSubscribe requests a named server stream.
func (o *Outbox) SendSubscribe(stream string) {
	o.Send(OutboundMessage{Type: "subscribe", Stream: stream})
}

func (o *Outbox) enqueue(msg OutboundMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) >= o.cap {
		dropped := o.queue[0]
		o.queue = o.queue[1:]
		o.dropped++
		metricOutboxDropped.Inc()
		o.logger.Warn("outbox full, dropping oldest command",
			zap.String("dropped_type", dropped.Type))
	}
	o.queue = append(o.queue, msg)
	metricOutboxDepth.Set(float64(len(o.queue)))
}

// Drain transmits queued messages in FIFO order, stopping at the first send
// error so the remainder keeps its order for the next attempt.
func (o *Outbox) Drain() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for len(o.queue) > 0 {
		if err := o.tr.Send(o.queue[0]); err != nil {
			o.logger.Warn("outbox drain interrupted",
				zap.Int("remaining", len(o.queue)), zap.Error(err))
			break
		}
		o.queue = o.queue[1:]
	}
	metricOutboxDepth.Set(float64(len(o.queue)))
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

func (o *Outbox) Dropped() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}
