package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEvent_Tags(t *testing.T) {
	e := New(KindCashRegister, "r1", ActionUpdated)
	assert.Equal(t, []string{"cash_registers", "cash_registers:r1"}, e.Tags())

	assert.Equal(t, []string{"investments"}, Event{Kind: KindInvestment}.Tags())
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	r.Publish(context.Background(), New(KindTransaction, "t1", ActionCreated), New(KindCashRegister, "r1", ActionUpdated))

	assert.Len(t, r.Events(), 2)
	assert.True(t, r.Has(KindTransaction, "t1", ActionCreated))
	assert.False(t, r.Has(KindTransaction, "t1", ActionDeleted))

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Multi{a, Nop{}, b}.Publish(context.Background(), New(KindUser, "u1", ActionCreated))

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "invalidate")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	p := NewRedisPublisher(client, "invalidate", zap.NewNop().Sugar())
	p.Publish(ctx, New(KindTransaction, "t1", ActionCreated), New(KindCashRegister, "r1", ActionUpdated))

	ch := sub.Channel()
	var got []Event
	for len(got) < 2 {
		select {
		case msg := <-ch:
			var e Event
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &e))
			got = append(got, e)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for events, got %d", len(got))
		}
	}

	assert.Equal(t, KindTransaction, got[0].Kind)
	assert.Equal(t, "r1", got[1].ID)
}

func TestRedisPublisher_UnreachableServerDoesNotPanic(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	p := NewRedisPublisher(client, "invalidate", zap.NewNop().Sugar())
	p.Publish(context.Background(), New(KindUser, "u1", ActionUpdated))
}
