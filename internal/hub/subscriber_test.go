package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/warelink/scangate/internal/domain"
	"github.com/warelink/scangate/internal/domain/events"
)

func TestNewChannelSubscriber(t *testing.T) {
	sub := NewChannelSubscriber("test-1", 10)

	if sub == nil {
		t.Fatal("NewChannelSubscriber() returned nil")
	}
	if sub.ID() != "test-1" {
		t.Errorf("ID() = %q, want test-1", sub.ID())
	}
	if sub.closed {
		t.Error("subscriber should not be closed initially")
	}
	if sub.send == nil {
		t.Error("send channel should not be nil")
	}
	if sub.done == nil {
		t.Error("done channel should not be nil")
	}
}

func TestChannelSubscriber_Send(t *testing.T) {
	sub := NewChannelSubscriber("test", 10)

	event := events.NewEvent(events.EventTypeHeartbeat, nil)
	err := sub.Send(event)

	if err != nil {
		t.Errorf("Send() error = %v, want nil", err)
	}

	select {
	case received := <-sub.Events():
		if received.Type() != events.EventTypeHeartbeat {
			t.Errorf("received event type = %v, want %v", received.Type(), events.EventTypeHeartbeat)
		}
	default:
		t.Error("expected event in channel")
	}
}

func TestChannelSubscriber_Send_BufferFull(t *testing.T) {
	sub := NewChannelSubscriber("test", 2)

	_ = sub.Send(events.NewEvent(events.EventTypeHeartbeat, nil))
	_ = sub.Send(events.NewEvent(events.EventTypeHeartbeat, nil))

	// Next send should fail (buffer full)
	err := sub.Send(events.NewEvent(events.EventTypeHeartbeat, nil))
	if err != domain.ErrSubscriberClosed {
		t.Errorf("Send() error = %v, want ErrSubscriberClosed", err)
	}
}

func TestChannelSubscriber_Send_AfterClose(t *testing.T) {
	sub := NewChannelSubscriber("test", 10)
	_ = sub.Close()

	err := sub.Send(events.NewEvent(events.EventTypeHeartbeat, nil))
	if err != domain.ErrSubscriberClosed {
		t.Errorf("Send() after close error = %v, want ErrSubscriberClosed", err)
	}
}

func TestChannelSubscriber_Close(t *testing.T) {
	sub := NewChannelSubscriber("test", 10)

	err := sub.Close()
	if err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
	if !sub.closed {
		t.Error("subscriber should be closed")
	}

	// Second close should be idempotent
	err = sub.Close()
	if err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
}

func TestChannelSubscriber_Done(t *testing.T) {
	sub := NewChannelSubscriber("test", 10)

	done := sub.Done()
	if done == nil {
		t.Fatal("Done() returned nil")
	}

	select {
	case <-done:
		t.Error("Done channel should not be closed initially")
	default:
	}

	_ = sub.Close()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Done channel should be closed after Close()")
	}
}

func TestChannelSubscriber_Concurrent(t *testing.T) {
	sub := NewChannelSubscriber("test", 1000)
	var wg sync.WaitGroup

	numSenders := 10
	eventsPerSender := 100

	wg.Add(numSenders)
	for i := 0; i < numSenders; i++ {
		go func(senderID int) {
			defer wg.Done()
			for j := 0; j < eventsPerSender; j++ {
				event := events.NewEvent(events.EventTypeScanResult, map[string]int{"sender": senderID, "seq": j})
				_ = sub.Send(event)
			}
		}(i)
	}

	wg.Wait()

	count := 0
	for {
		select {
		case <-sub.Events():
			count++
		default:
			expected := numSenders * eventsPerSender
			if count != expected {
				t.Errorf("received %d events, want %d", count, expected)
			}
			return
		}
	}
}

// FuncSubscriber tests

func TestNewFuncSubscriber(t *testing.T) {
	sub := NewFuncSubscriber("fn-1", func(e events.Event) {})

	if sub == nil {
		t.Fatal("NewFuncSubscriber() returned nil")
	}
	if sub.ID() != "fn-1" {
		t.Errorf("ID() = %q, want fn-1", sub.ID())
	}
	if sub.closed {
		t.Error("subscriber should not be closed initially")
	}
}

func TestFuncSubscriber_Send(t *testing.T) {
	var received events.Event
	sub := NewFuncSubscriber("fn", func(e events.Event) {
		received = e
	})

	event := events.NewEvent(events.EventTypeMessage, map[string]string{"text": "done"})
	if err := sub.Send(event); err != nil {
		t.Errorf("Send() error = %v, want nil", err)
	}

	if received == nil {
		t.Fatal("callback was not invoked")
	}
	if received.Type() != events.EventTypeMessage {
		t.Errorf("received event type = %v, want %v", received.Type(), events.EventTypeMessage)
	}
}

func TestFuncSubscriber_Send_NilFn(t *testing.T) {
	sub := NewFuncSubscriber("fn", nil)

	// Should not panic with a nil callback
	if err := sub.Send(events.NewEvent(events.EventTypeHeartbeat, nil)); err != nil {
		t.Errorf("Send() error = %v, want nil", err)
	}
}

func TestFuncSubscriber_Send_AfterClose(t *testing.T) {
	sub := NewFuncSubscriber("fn", func(e events.Event) {})
	_ = sub.Close()

	err := sub.Send(events.NewEvent(events.EventTypeHeartbeat, nil))
	if err != domain.ErrSubscriberClosed {
		t.Errorf("Send() after close error = %v, want ErrSubscriberClosed", err)
	}
}

func TestFuncSubscriber_Close(t *testing.T) {
	sub := NewFuncSubscriber("fn", nil)

	if err := sub.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
	if !sub.closed {
		t.Error("subscriber should be closed")
	}

	// Second close should be idempotent
	if err := sub.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
}
