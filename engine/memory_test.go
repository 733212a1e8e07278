package engine_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scenescript/scenectl/engine"
)

func TestPrintWritesLine(t *testing.T) {
	var buf bytes.Buffer
	m := engine.NewMemoryTo(&buf)
	require.NoError(t, m.Print(context.Background(), "hello"))
	require.Equal(t, "hello\n", buf.String())
}

func TestGetBlocksUntilSet(t *testing.T) {
	m := engine.NewMemoryTo(&bytes.Buffer{})
	done := make(chan []byte, 1)
	go func() {
		data, err := m.Get(context.Background(), "light")
		require.NoError(t, err)
		done <- data
	}()

	require.Eventually(t, func() bool {
		return m.Set(context.Background(), "light", []byte("on")) == nil
	}, time.Second, time.Millisecond)

	select {
	case data := <-done:
		require.Equal(t, []byte("on"), data)
	case <-time.After(time.Second):
		t.Fatal("Get never unblocked")
	}
}

func TestSetWithNoWaitersIsANoop(t *testing.T) {
	m := engine.NewMemoryTo(&bytes.Buffer{})
	require.NoError(t, m.Set(context.Background(), "unwatched", []byte("x")))
}

func TestGetUnblocksOnContextCancel(t *testing.T) {
	m := engine.NewMemoryTo(&bytes.Buffer{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := m.Get(ctx, "never-set")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitHonoursDuration(t *testing.T) {
	m := engine.NewMemoryTo(&bytes.Buffer{})
	start := time.Now()
	require.NoError(t, m.Wait(context.Background(), 20*time.Millisecond))
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSetFansOutToEveryRegisteredWaiter(t *testing.T) {
	m := engine.NewMemoryTo(&bytes.Buffer{})
	results := make(chan []byte, 2)
	for i := 0; i < 2; i++ {
		go func() {
			data, err := m.Get(context.Background(), "shared")
			require.NoError(t, err)
			results <- data
		}()
	}

	time.Sleep(20 * time.Millisecond) // let both Gets register their waiter
	require.NoError(t, m.Set(context.Background(), "shared", []byte("v")))

	for i := 0; i < 2; i++ {
		select {
		case data := <-results:
			require.Equal(t, []byte("v"), data)
		case <-time.After(time.Second):
			t.Fatal("waiter never received payload")
		}
	}
}
