package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisFanout_DeliversToLocalHub(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	hub := NewHub(nil)
	listener := NewClient(nil, DoctorRoom("d1"))
	hub.Register(listener)

	fanout := NewRedisFanout(client, "telehealth:events", hub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	go func() { _ = fanout.Run(ctx, ready) }()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("fanout never subscribed")
	}

	require.NoError(t, fanout.Push(ctx, Message{Event: "new-appointment", Room: DoctorRoom("d1"), Data: json.RawMessage(`{"appointmentId":"a1"}`)}))

	select {
	case data := <-listener.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "new-appointment", msg.Event)
		assert.JSONEq(t, `{"appointmentId":"a1"}`, string(msg.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("message did not arrive through redis")
	}
}

func TestConnectRedis_RejectsBadURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := ConnectRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	client.Close()
}
