package extbus

import (
	"testing"
	"time"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/keys"
)

func testArchive() *archive.Archive {
	var k keys.Key
	k[0] = 7
	return archive.New(k, true)
}

func TestHandlePeerConnectEmitsAndSendsLocalData(t *testing.T) {
	bus := New(testArchive(), nil)
	bus.SetLocalSessionData([]byte("hello"), nil)

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	var sent []byte
	var sendCalled bool
	bus.HandlePeerConnect("peer-1", func(data []byte) error {
		sendCalled = true
		sent = data
		return nil
	})

	select {
	case ev := <-events:
		if ev.Kind != EventConnect || ev.PeerID != "peer-1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connect event")
	}

	if !sendCalled || string(sent) != "hello" {
		t.Fatalf("expected local session data to be sent, got %q (called=%v)", sent, sendCalled)
	}
}

func TestHandleSessionDataTruncatesOversizedPayload(t *testing.T) {
	bus := New(testArchive(), nil)
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	oversized := make([]byte, maxSessionDataSize+100)
	bus.HandleSessionData("peer-1", oversized)

	select {
	case ev := <-events:
		if len(ev.SessionData) != maxSessionDataSize {
			t.Fatalf("expected truncation to %d bytes, got %d", maxSessionDataSize, len(ev.SessionData))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for session data event")
	}
}

func TestSetLocalSessionDataRejectsOversizedPayload(t *testing.T) {
	bus := New(testArchive(), nil)
	oversized := make([]byte, maxSessionDataSize+1)
	if err := bus.SetLocalSessionData(oversized, nil); err == nil {
		t.Fatal("expected error for oversized session data")
	}
}

func TestHandleMessageIncludesKnownSessionData(t *testing.T) {
	bus := New(testArchive(), nil)
	bus.HandleSessionData("peer-1", []byte("peer-state"))

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.HandleMessage("peer-1", Message{ContentType: ContentTypeJSON, Payload: []byte(`{"a":1}`)})

	select {
	case ev := <-events:
		if ev.Kind != EventMessage || string(ev.SessionData) != "peer-state" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(testArchive(), nil)
	events, unsubscribe := bus.Subscribe()
	unsubscribe()

	if _, ok := <-events; ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
}
