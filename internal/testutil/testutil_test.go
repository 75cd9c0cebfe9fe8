package testutil

import (
	"errors"
	"testing"

	"github.com/warelink/scangate/internal/domain/events"
)

func TestMockSubscriberRecordsEvents(t *testing.T) {
	sub := NewMockSubscriber("test-1")

	if err := sub.Send(events.NewMessageEvent("hello")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if sub.EventCount() != 1 {
		t.Errorf("expected 1 event, got %d", sub.EventCount())
	}
}

func TestMockSubscriberSendError(t *testing.T) {
	sub := NewMockSubscriber("test-1")
	sub.SetSendError(errors.New("closed"))

	if err := sub.Send(events.NewMessageEvent("hello")); err == nil {
		t.Error("expected send error")
	}
	if sub.EventCount() != 0 {
		t.Error("errored send must not record the event")
	}
}

func TestMockSubscriberClose(t *testing.T) {
	sub := NewMockSubscriber("test-1")

	if sub.IsClosed() {
		t.Error("new subscriber must not be closed")
	}
	_ = sub.Close()
	if !sub.IsClosed() {
		t.Error("expected closed subscriber")
	}
	select {
	case <-sub.Done():
	default:
		t.Error("Done channel must be closed after Close")
	}
}

func TestMockEventHub(t *testing.T) {
	hub := NewMockEventHub()
	_ = hub.Start()

	hub.Publish(events.NewMessageEvent("one"))
	hub.Publish(events.NewLoadingEvent(true))
	hub.Publish(events.NewMessageEvent("two"))

	if got := len(hub.PublishedEvents()); got != 3 {
		t.Errorf("expected 3 events, got %d", got)
	}
	if got := len(hub.EventsOfType(events.EventTypeMessage)); got != 2 {
		t.Errorf("expected 2 message events, got %d", got)
	}

	sub := NewMockSubscriber("s1")
	hub.Subscribe(sub)
	if hub.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", hub.SubscriberCount())
	}
	hub.Unsubscribe("s1")
	if hub.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.SubscriberCount())
	}
}
