package reactor

import (
	"errors"
	"testing"
	"time"
)

// testMsg is a minimal Message that records delivery.
type testMsg struct {
	delivered chan struct{}
}

func newTestMsg() *testMsg {
	return &testMsg{delivered: make(chan struct{})}
}

func (m *testMsg) Deliver() {
	close(m.delivered)
}

func TestChannelLoop_PostAndRun(t *testing.T) {
	loop := NewChannelLoop(4)
	defer loop.Close()

	go loop.Run()

	msg := newTestMsg()
	if err := loop.Post(msg); err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	select {
	case <-msg.delivered:
	case <-time.After(time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestChannelLoop_Pump(t *testing.T) {
	loop := NewChannelLoop(4)
	defer loop.Close()

	first := newTestMsg()
	second := newTestMsg()
	if err := loop.Post(first); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if err := loop.Post(second); err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	loop.Pump()

	select {
	case <-first.delivered:
	default:
		t.Error("first message not delivered by Pump")
	}
	select {
	case <-second.delivered:
	default:
		t.Error("second message not delivered by Pump")
	}
}

func TestChannelLoop_QueueFull(t *testing.T) {
	loop := NewChannelLoop(1)
	defer loop.Close()

	if err := loop.Post(newTestMsg()); err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	err := loop.Post(newTestMsg())
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("Post() on full queue error = %v, want ErrQueueFull", err)
	}
}

func TestChannelLoop_PostAfterClose(t *testing.T) {
	loop := NewChannelLoop(4)
	loop.Close()

	err := loop.Post(newTestMsg())
	if !errors.Is(err, ErrLoopClosed) {
		t.Errorf("Post() after Close error = %v, want ErrLoopClosed", err)
	}

	if loop.Alive() {
		t.Error("Alive() = true after Close")
	}
}

func TestChannelLoop_CloseIdempotent(t *testing.T) {
	loop := NewChannelLoop(4)
	loop.Close()
	loop.Close()
}

func TestChannelLoop_RunReturnsOnClose(t *testing.T) {
	loop := NewChannelLoop(4)

	done := make(chan struct{})
	go func() {
		loop.Run()
		close(done)
	}()

	loop.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
}
