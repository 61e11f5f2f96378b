package websocket

import (
	"testing"
	"time"

	"github.com/novelreel/api/internal/model"
)

func waitClosed(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("client was not dropped")
	}
}

func TestHub_DropsSlowClientWithoutClosingSend(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := &Client{
		JobID: "job-1",
		Send:  make(chan []byte, 1),
		done:  make(chan struct{}),
	}
	h.Register(client)

	// First message fills the buffer, the second marks the client slow
	h.BroadcastProgress("job-1", 10, model.JobStatusRunning, "a")
	h.BroadcastProgress("job-1", 20, model.JobStatusRunning, "b")
	waitClosed(t, client.done)

	// The reader's pong path may still run after the drop; it must not panic
	// and must not block.
	client.trySend([]byte(`{"type":"pong"}`))

	// The connection teardown unregisters the already-dropped client
	h.Unregister(client)
}

func TestHub_TrySendDiscardsWhenBufferFull(t *testing.T) {
	client := &Client{
		JobID: "job-1",
		Send:  make(chan []byte, 1),
		done:  make(chan struct{}),
	}

	client.trySend([]byte("one"))
	client.trySend([]byte("two"))

	if got := len(client.Send); got != 1 {
		t.Errorf("expected 1 buffered frame, got %d", got)
	}
}
