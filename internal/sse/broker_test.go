package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// drain collects every message currently buffered on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "ledger.synced", Data: map[string]int{"imported": 3}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "event: ledger.synced\n") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"imported":3`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishLedgerChange_ActivityThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishLedgerChange("created", "a.yaml")
	b.PublishLedgerChange("deleted", "b.yaml")
	time.Sleep(50 * time.Millisecond)

	var activity, created, deleted int
	for _, s := range drain(ch) {
		switch {
		case strings.Contains(s, TypeActivityUpdated):
			activity++
		case strings.Contains(s, TypeLedgerCreated) && strings.Contains(s, `"path":"a.yaml"`):
			created++
		case strings.Contains(s, TypeLedgerDeleted):
			deleted++
		}
	}
	if created != 1 || deleted != 1 {
		t.Errorf("ledger events created=%d deleted=%d, want 1 each", created, deleted)
	}
	if activity != 1 {
		t.Errorf("activity events = %d, want 1 (throttled)", activity)
	}
}

func TestPublishLedgerChange_ActivityHintCarriesPaths(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishLedgerChange("updated", "elm.yaml")
	b.PublishLedgerChange("updated", "oak/leases.yaml")
	b.PublishLedgerChange("created", "birch.yaml")
	b.PublishLedgerChange("updated", "oak/leases.yaml")
	time.Sleep(250 * time.Millisecond)

	var hints []string
	for _, s := range drain(ch) {
		if strings.HasPrefix(s, "event: "+TypeActivityUpdated+"\n") {
			hints = append(hints, s)
		}
	}
	if len(hints) != 2 {
		t.Fatalf("activity hints = %d, want 2: %q", len(hints), hints)
	}
	if !strings.Contains(hints[0], `{"paths":["elm.yaml"]}`) {
		t.Errorf("first hint = %q", hints[0])
	}
	// Changes inside the throttle window arrive once, sorted, in the trailing hint.
	if !strings.Contains(hints[1], `{"paths":["birch.yaml","oak/leases.yaml"]}`) {
		t.Errorf("trailing hint = %q", hints[1])
	}
}

func TestPublishLedgerChange_UnknownKindIgnored(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishLedgerChange("renamed", "a.yaml")
	time.Sleep(50 * time.Millisecond)

	if got := drain(ch); len(got) != 0 {
		t.Errorf("unexpected messages %q", got)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishLedgerChange("updated", "elm.yaml")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: ledger.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Client buffer holds 64; the rest must be dropped without blocking.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// no-ops after close
	b.Publish(Event{Type: TypeLedgerUpdated})
	b.PublishLedgerChange("updated", "x.yaml")
	b.Close()
}
