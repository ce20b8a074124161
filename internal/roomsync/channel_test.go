package roomsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/scrumdeck/backend/internal/room"
	"github.com/scrumdeck/backend/internal/store"
)

func recvRoom(t *testing.T, ch <-chan room.Room, within time.Duration) room.Room {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot callback")
		return room.Room{} // unreachable
	}
}

func recvNoRoom(t *testing.T, ch <-chan room.Room, within time.Duration) {
	t.Helper()
	select {
	case r := <-ch:
		t.Fatalf("expected no callback within %v, got %+v", within, r)
	case <-time.After(within):
	}
}

func newChannel(t *testing.T) (*Channel, *store.MemStore) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	mem := store.NewMemStore(ctx, zap.NewNop())
	return NewChannel(mem, zap.NewNop()), mem
}

func TestSubscribeDeliversSnapshotsInOrder(t *testing.T) {
	c, mem := newChannel(t)
	ctx := context.Background()

	if err := mem.Create(ctx, "r1", room.New("sprint", "owner_r1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got := make(chan room.Room, 4)
	cancel := c.Subscribe(ctx, "r1", func(r room.Room) { got <- r }, func() {
		t.Errorf("unexpected onMissing for existing room")
	})
	defer cancel()

	first := recvRoom(t, got, 100*time.Millisecond)
	if first.Name != "sprint" {
		t.Fatalf("unexpected initial snapshot: %+v", first)
	}

	upd, err := room.Join(first, "Alice", "p1_r1")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := c.Publish(ctx, "r1", upd); err != nil {
		t.Fatalf("publish: %v", err)
	}

	next := recvRoom(t, got, 100*time.Millisecond)
	if next.Players["p1_r1"].Name != "Alice" {
		t.Fatalf("expected own write via next snapshot, got %+v", next.Players)
	}
}

func TestSubscribeMissingRoom(t *testing.T) {
	c, _ := newChannel(t)

	missing := make(chan struct{}, 1)
	cancel := c.Subscribe(context.Background(), "ghost",
		func(r room.Room) { t.Errorf("unexpected snapshot: %+v", r) },
		func() { missing <- struct{}{} })
	defer cancel()

	select {
	case <-missing:
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timed out waiting for onMissing")
	}
}

func TestCancelTearsDownTheFeed(t *testing.T) {
	c, mem := newChannel(t)
	ctx := context.Background()

	if err := mem.Create(ctx, "r1", room.New("sprint", "owner_r1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got := make(chan room.Room, 4)
	cancel := c.Subscribe(ctx, "r1", func(r room.Room) { got <- r }, func() {})
	_ = recvRoom(t, got, 100*time.Millisecond)

	cancel()
	cancel() // idempotent

	if err := mem.Merge(ctx, "r1", room.Update{room.FieldRevealed: true}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	recvNoRoom(t, got, 100*time.Millisecond)
}

func TestPublishAbsentRoom(t *testing.T) {
	c, _ := newChannel(t)

	err := c.Publish(context.Background(), "ghost", room.Update{room.FieldRevealed: true})
	if !errors.Is(err, store.ErrRoomNotFound) {
		t.Fatalf("want ErrRoomNotFound, got %v", err)
	}
}

func TestPublishWrapsStoreFailure(t *testing.T) {
	c, mem := newChannel(t)
	mem.Close()

	// Give the actor a moment to wind down.
	time.Sleep(10 * time.Millisecond)

	err := c.Publish(context.Background(), "r1", room.Update{room.FieldRevealed: true})
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("want ErrWriteFailed, got %v", err)
	}
}
