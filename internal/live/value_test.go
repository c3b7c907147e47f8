package live_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/nextrep/internal/live"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestValue_SubscribeReceivesCurrent(t *testing.T) {
	v := live.New[int]()
	v.Publish(7)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := v.Subscribe(ctx)
	select {
	case got := <-ch:
		assert.Equal(t, 7, got)
	case <-time.After(time.Second):
		t.Fatal("no initial value")
	}
}

func TestValue_SlowSubscriberSeesLatest(t *testing.T) {
	v := live.New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := v.Subscribe(ctx)
	for i := 1; i <= 100; i++ {
		v.Publish(i)
	}

	select {
	case got := <-ch:
		assert.Equal(t, 100, got)
	case <-time.After(time.Second):
		t.Fatal("no value")
	}

	select {
	case got := <-ch:
		t.Fatalf("unexpected extra value %d", got)
	default:
	}
}

func TestValue_CancelClosesOnlyThatSubscription(t *testing.T) {
	v := live.New[string]()
	ctxA, cancelA := context.WithCancel(context.Background())
	ctxB, cancelB := context.WithCancel(context.Background())
	defer cancelB()

	a := v.Subscribe(ctxA)
	b := v.Subscribe(ctxB)
	require.Equal(t, 2, v.Subscribers())

	cancelA()
	assert.Eventually(t, func() bool {
		_, ok := <-a
		return !ok
	}, time.Second, 5*time.Millisecond)

	v.Publish("still here")
	select {
	case got := <-b:
		assert.Equal(t, "still here", got)
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber got nothing")
	}
	assert.Equal(t, 1, v.Subscribers())
}

func TestValue_ActivityHooks(t *testing.T) {
	v := live.New[int]()
	var active, idle atomic.Int32
	v.NotifyActivity(func() { active.Add(1) }, func() { idle.Add(1) })

	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	v.Subscribe(ctx1)
	v.Subscribe(ctx2)
	assert.Equal(t, int32(1), active.Load())

	cancel1()
	assert.Eventually(t, func() bool { return v.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), idle.Load())

	cancel2()
	assert.Eventually(t, func() bool { return idle.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), active.Load())
}

func TestValue_Await(t *testing.T) {
	v := live.New[int]()

	go func() {
		time.Sleep(10 * time.Millisecond)
		v.Publish(42)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := v.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	// Already published: returns at once.
	got, err = v.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	assert.Eventually(t, func() bool { return v.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestValue_AwaitTimeout(t *testing.T) {
	v := live.New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := v.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Eventually(t, func() bool { return v.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestValue_Reset(t *testing.T) {
	v := live.New[int]()
	v.Publish(1)
	v.Reset()

	_, ok := v.Load()
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := v.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Eventually(t, func() bool { return v.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}
