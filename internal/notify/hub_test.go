package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub(nil)
	client := NewClient(nil, DoctorRoom("d1"))

	hub.Register(client)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.RoomCount("doctor-d1"))

	hub.Unregister(client)
	hub.Unregister(client)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.RoomCount("doctor-d1"))

	_, open := <-client.Send
	assert.False(t, open)
}

func TestHub_BroadcastOnlyReachesRoom(t *testing.T) {
	hub := NewHub(nil)
	doctor := NewClient(nil, DoctorRoom("d1"))
	patient := NewClient(nil, PatientRoom("p1"))
	hub.Register(doctor)
	hub.Register(patient)

	require.NoError(t, hub.Push(context.Background(), Message{Event: "new-appointment", Room: "doctor-d1"}))

	select {
	case data := <-doctor.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "new-appointment", msg.Event)
	case <-time.After(time.Second):
		t.Fatal("doctor did not receive message")
	}
	assert.Empty(t, patient.Send)
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	client := &Client{ID: "slow", Rooms: []string{"patient-p1"}, Send: make(chan []byte, 1)}
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		hub.Broadcast(Message{Room: "patient-p1"})
		hub.Broadcast(Message{Room: "patient-p1"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client buffer")
	}
	assert.Len(t, client.Send, 1)
}

type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("closed")
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) messages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.written)
}

func TestHub_ServeWritesUntilClosed(t *testing.T) {
	hub := NewHub(nil)
	conn := newFakeConn()
	client := NewClient(conn, PatientRoom("p1"))

	served := make(chan struct{})
	go func() {
		hub.Serve(client)
		close(served)
	}()

	require.Eventually(t, func() bool { return hub.RoomCount("patient-p1") == 1 }, time.Second, 10*time.Millisecond)
	hub.Broadcast(Message{Event: "appointment-cancelled", Room: "patient-p1"})
	require.Eventually(t, func() bool { return conn.messages() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	select {
	case <-served:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after the connection closed")
	}
	assert.Equal(t, 0, hub.ClientCount())
}
