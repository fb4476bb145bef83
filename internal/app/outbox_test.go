package app

import (
	"errors"
	"sync"
	"testing"

	"botwatch/config"
)

type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	failSends int
	sent      []OutboundMessage
}

func (f *fakeTransport) Send(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSends > 0 {
		f.failSends--
		return errors.New("write: broken pipe")
	}
	f.sent = append(f.sent, v.(OutboundMessage))
	return nil
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) setConnected(on bool) {
	f.mu.Lock()
	f.connected = on
	f.mu.Unlock()
}

func (f *fakeTransport) sentMessages() []OutboundMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]OutboundMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func testOutbox(tr *fakeTransport, capacity int) *Outbox {
	return NewOutbox(nil, config.OutboxConfig{Capacity: capacity}, tr)
}

func TestSendImmediateWhenConnected(t *testing.T) {
	tr := &fakeTransport{connected: true}
	o := testOutbox(tr, 10)

	o.SendCommand("force_update", nil)
	if o.Len() != 0 {
		t.Fatalf("Len = %d, want 0 after direct send", o.Len())
	}
	sent := tr.sentMessages()
	if len(sent) != 1 || sent[0].Command != "force_update" {
		t.Fatalf("sent = %+v, want one force_update", sent)
	}
}

func TestSendQueuesWhileDisconnected(t *testing.T) {
	tr := &fakeTransport{}
	o := testOutbox(tr, 10)

	o.SendCommand("pause", nil)
	o.SendSubscribe("dashboard")
	if o.Len() != 2 {
		t.Fatalf("Len = %d, want 2", o.Len())
	}
	if len(tr.sentMessages()) != 0 {
		t.Fatal("nothing should be transmitted while disconnected")
	}
}

func TestSendQueuesOnTransmitFailure(t *testing.T) {
	tr := &fakeTransport{connected: true, failSends: 1}
	o := testOutbox(tr, 10)

	o.SendCommand("pause", nil)
	if o.Len() != 1 {
		t.Fatalf("Len = %d, want 1 after failed transmit", o.Len())
	}
}

func TestDrainFIFO(t *testing.T) {
	tr := &fakeTransport{}
	o := testOutbox(tr, 10)

	o.SendCommand("first", nil)
	o.SendCommand("second", nil)
	o.SendSubscribe("dashboard")

	tr.setConnected(true)
	o.Drain()

	if o.Len() != 0 {
		t.Fatalf("Len after drain = %d, want 0", o.Len())
	}
	sent := tr.sentMessages()
	if len(sent) != 3 {
		t.Fatalf("sent %d messages, want 3", len(sent))
	}
	if sent[0].Command != "first" || sent[1].Command != "second" || sent[2].Stream != "dashboard" {
		t.Fatalf("drain order wrong: %+v", sent)
	}
}

func TestDrainStopsOnError(t *testing.T) {
	tr := &fakeTransport{}
	o := testOutbox(tr, 10)

	o.SendCommand("first", nil)
	o.SendCommand("second", nil)

	tr.setConnected(true)
	tr.mu.Lock()
	tr.failSends = 1
	tr.mu.Unlock()
	o.Drain()

	// The failed head stays queued and order is preserved.
	if o.Len() != 2 {
		t.Fatalf("Len after interrupted drain = %d, want 2", o.Len())
	}
	o.Drain()
	sent := tr.sentMessages()
	if len(sent) != 2 || sent[0].Command != "first" {
		t.Fatalf("retry order wrong: %+v", sent)
	}
}

func TestOutboxDropsOldestWhenFull(t *testing.T) {
	tr := &fakeTransport{}
	o := testOutbox(tr, 3)

	o.SendCommand("c0", nil)
	o.SendCommand("c1", nil)
	o.SendCommand("c2", nil)
	o.SendCommand("c3", nil)

	if o.Len() != 3 {
		t.Fatalf("Len = %d, want capacity 3", o.Len())
	}
	if o.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", o.Dropped())
	}

	tr.setConnected(true)
	o.Drain()
	sent := tr.sentMessages()
	if sent[0].Command != "c1" || sent[2].Command != "c3" {
		t.Fatalf("expected c0 dropped, got %+v", sent)
	}
}
