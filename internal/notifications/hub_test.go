package notifications

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_BroadcastIsCompanyScoped(t *testing.T) {
	hub := NewHub()
	acme, err := hub.Register(1, 10, nil)
	require.NoError(t, err)
	globex, err := hub.Register(2, 20, nil)
	require.NoError(t, err)

	delivered := hub.BroadcastCompany(1, `{"type":"confession_created"}`)
	assert.Equal(t, 1, delivered)

	select {
	case msg := <-acme.Send:
		assert.JSONEq(t, `{"type":"confession_created"}`, string(msg))
	default:
		t.Fatal("expected message for company 1")
	}
	assert.Empty(t, globex.Send)
	assert.Equal(t, 0, hub.BroadcastCompany(99, "nobody"))

	_ = hub.Shutdown(context.Background())
}

func TestHub_ConnectionLimits(t *testing.T) {
	t.Run("per user", func(t *testing.T) {
		hub := NewHub()
		hub.maxPerUser = 2

		first, err := hub.Register(1, 5, nil)
		require.NoError(t, err)
		_, err = hub.Register(1, 5, nil)
		require.NoError(t, err)
		_, err = hub.Register(1, 5, nil)
		assert.ErrorIs(t, err, ErrUserLimit)

		_, err = hub.Register(1, 6, nil)
		assert.NoError(t, err)

		hub.UnregisterClient(first)
		_, err = hub.Register(1, 5, nil)
		assert.NoError(t, err)
	})

	t.Run("global", func(t *testing.T) {
		hub := NewHub()
		hub.maxTotal = 1

		_, err := hub.Register(1, 5, nil)
		require.NoError(t, err)
		_, err = hub.Register(2, 6, nil)
		assert.ErrorIs(t, err, ErrServerFull)
	})
}

func TestHub_UnregisterTwiceIsNoop(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(3, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.ConnectionCount())

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.Empty(t, hub.companies)
	assert.Empty(t, hub.perUser)
}

func TestHub_SlowConsumerGetsDropNotice(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, 1, nil)
	require.NoError(t, err)

	for i := 0; i < sendBufferSize; i++ {
		require.True(t, c.TrySend([]byte("event")))
	}
	assert.False(t, c.TrySend([]byte("overflow")))

	assert.Len(t, c.Send, sendBufferSize)
	var last []byte
	for len(c.Send) > 0 {
		last = <-c.Send
	}
	var ev Event
	require.NoError(t, json.Unmarshal(last, &ev))
	assert.Equal(t, EventMessagesDropped, ev.Type)
}

func TestHub_ShutdownRejectsRegistration(t *testing.T) {
	hub := NewHub()
	_, err := hub.Register(1, 1, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.ConnectionCount())

	_, err = hub.Register(1, 1, nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_ShutdownHandsCloseToWritePump(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register(1, 1, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))

	select {
	case <-client.Closing():
	default:
		t.Fatal("expected shutdown to signal the client")
	}
	// The send channel stays open; only the pump touches the socket.
	assert.True(t, client.TrySend([]byte("late")))
	client.Close()
}

func TestHub_StartWiringFansOutRedisMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := NewHub()
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	c, err := hub.Register(4, 1, nil)
	require.NoError(t, err)
	other, err := hub.Register(5, 2, nil)
	require.NoError(t, err)

	payload, err := Encode(EventConfessionDeleted, map[string]uint{"id": 9})
	require.NoError(t, err)
	require.NoError(t, n.PublishCompany(context.Background(), 4, payload))

	assert.Eventually(t, func() bool { return len(c.Send) == 1 }, testEventuallyTimeout, testPollInterval)
	msg := <-c.Send
	assert.True(t, strings.Contains(string(msg), `"confession_deleted"`))
	assert.Empty(t, other.Send)
}
