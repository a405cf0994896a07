package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/relaywatch/daemonctl"
)

func TestSubscribeReceivesEmittedEvents(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	ch, unsubscribe := h.Subscribe()
	defer unsubscribe()

	h.Emit(daemonctl.Event{Identifier: "worker", Kind: daemonctl.Started, At: time.Now()})

	select {
	case evt := <-ch:
		if evt.Identifier != "worker" || evt.Kind != daemonctl.Started {
			t.Errorf("received %+v, want worker/Started", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscribed event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	ch, unsubscribe := h.Subscribe()
	unsubscribe()

	h.Emit(daemonctl.Event{Identifier: "worker", Kind: daemonctl.Started, At: time.Now()})

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel to close")
	}
}

func TestClientCountStartsAtZero(t *testing.T) {
	h := NewHub()
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", h.ClientCount())
	}
}

func TestEmitDoesNotBlockWithoutRunLoop(t *testing.T) {
	h := NewHub()
	done := make(chan struct{})
	go func() {
		h.Emit(daemonctl.Event{Identifier: "worker", Kind: daemonctl.Started, At: time.Now()})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked with no Run loop draining broadcastCh")
	}
}
