package eventbus

import (
	"sync"
	"testing"
	"time"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case evt := <-sub.C:
		return evt
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout: expected event within 100ms")
		return Event{}
	}
}

func TestEventBus_PublishAndSubscribe(t *testing.T) {
	bus := New()
	sub := bus.Subscribe(TopicNewMessage)

	bus.Publish(TopicNewMessage, "chat-1")

	evt := receive(t, sub)
	if evt.Topic != TopicNewMessage || evt.Payload != "chat-1" {
		t.Errorf("got %+v; want {newMessage chat-1}", evt)
	}
}

func TestEventBus_MultipleTopicsOneSubscription(t *testing.T) {
	bus := New()
	sub := bus.Subscribe(TopicNewMessage, TopicNewChat)

	bus.Publish(TopicNewChat, "a")
	bus.Publish(TopicNewMessage, "b")

	if got := receive(t, sub); got.Topic != TopicNewChat {
		t.Errorf("first event topic = %q; want newChat", got.Topic)
	}
	if got := receive(t, sub); got.Topic != TopicNewMessage {
		t.Errorf("second event topic = %q; want newMessage", got.Topic)
	}
}

func TestEventBus_MultipleSubscribers_AllReceive(t *testing.T) {
	bus := New()
	s1 := bus.Subscribe(TopicNewChat)
	s2 := bus.Subscribe(TopicNewChat)

	bus.Publish(TopicNewChat, 42)

	for i, s := range []*Subscription{s1, s2} {
		if evt := receive(t, s); evt.Payload != 42 {
			t.Errorf("subscriber %d: payload = %v; want 42", i, evt.Payload)
		}
	}
}

func TestEventBus_DifferentTopics_NoInterference(t *testing.T) {
	bus := New()
	subB := bus.Subscribe(TopicNewChat)

	bus.Publish(TopicNewMessage, "for-a")

	select {
	case evt := <-subB.C:
		t.Errorf("newChat subscriber received unexpected %+v", evt)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEventBus_FullBuffer_DoesNotBlock(t *testing.T) {
	bus := New()
	_ = bus.Subscribe(TopicNewMessage) // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBufferSize*2; i++ {
			bus.Publish(TopicNewMessage, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}
}

func TestEventBus_Unsubscribe_ClosesAndStopsDelivery(t *testing.T) {
	bus := New()
	sub := bus.Subscribe(TopicNewMessage, TopicNewChat)

	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub) // second call is a no-op

	if _, ok := <-sub.C; ok {
		t.Error("channel still open after Unsubscribe")
	}
	bus.Publish(TopicNewMessage, "x") // must not panic on the closed channel

	if n := len(bus.subscribers); n != 0 {
		t.Errorf("subscribers map has %d topics; want 0", n)
	}
}

func TestEventBus_ConcurrentPublishUnsubscribe(t *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		sub := bus.Subscribe(TopicNewMessage)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.Publish(TopicNewMessage, j)
			}
		}()
		go func() {
			defer wg.Done()
			bus.Unsubscribe(sub)
		}()
	}
	wg.Wait()
}
