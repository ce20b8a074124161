package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/scrumdeck/backend/internal/room"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("watcher outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			// channel closed → no further snapshots possible
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
	}
}

func recvClosed(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if ok {
			t.Fatalf("expected closed outbox, got snapshot: %+v", s)
		}
	case <-time.After(within):
		t.Fatalf("timed out waiting for outbox close")
	}
}

func newTestStore(t *testing.T) *MemStore {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewMemStore(ctx, zap.NewNop())
}

func seatRoom() room.Room {
	r := room.New("sprint", "owner_r1")
	r.Players["p1_r1"] = room.Player{Name: "Alice"}
	return r
}

func TestWatchDeliversCurrentSnapshotImmediately(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "r1", seatRoom()); err != nil {
		t.Fatalf("create: %v", err)
	}

	out := make(chan Snapshot, 2)
	cancel := s.Watch("r1", "w1", out)
	defer cancel()

	snap := recvSnapshot(t, out, 100*time.Millisecond)
	if snap.Missing {
		t.Fatalf("expected existing room, got missing")
	}
	if snap.Version != 0 {
		t.Fatalf("after watch: want version=0, got %d", snap.Version)
	}
	if snap.Room.Players["p1_r1"].Name != "Alice" {
		t.Fatalf("unexpected room: %+v", snap.Room)
	}
}

func TestMergeBroadcastsBumpedVersionToAllWatchers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "r1", seatRoom()); err != nil {
		t.Fatalf("create: %v", err)
	}

	out1 := make(chan Snapshot, 2)
	out2 := make(chan Snapshot, 2)
	cancel1 := s.Watch("r1", "w1", out1)
	cancel2 := s.Watch("r1", "w2", out2)
	defer cancel1()
	defer cancel2()

	_ = recvSnapshot(t, out1, 100*time.Millisecond)
	_ = recvSnapshot(t, out2, 100*time.Millisecond)

	if err := s.Merge(ctx, "r1", room.Update{room.CardPath("p1_r1"): float64(5)}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	for _, out := range []chan Snapshot{out1, out2} {
		snap := recvSnapshot(t, out, 100*time.Millisecond)
		if snap.Version != 1 {
			t.Fatalf("after merge: want version=1, got %d", snap.Version)
		}
		if snap.Room.Players["p1_r1"].Card != 5 {
			t.Fatalf("after merge: want card 5, got %+v", snap.Room.Players["p1_r1"])
		}
	}
}

func TestWatchAbsentRoomThenCreate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	out := make(chan Snapshot, 2)
	cancel := s.Watch("r1", "w1", out)
	defer cancel()

	snap := recvSnapshot(t, out, 100*time.Millisecond)
	if !snap.Missing {
		t.Fatalf("expected missing snapshot for absent room, got %+v", snap)
	}

	// The feed survives the missing state and hears about the create.
	if err := s.Create(ctx, "r1", seatRoom()); err != nil {
		t.Fatalf("create: %v", err)
	}
	snap = recvSnapshot(t, out, 100*time.Millisecond)
	if snap.Missing {
		t.Fatalf("expected created room, got missing")
	}
}

func TestDeleteBroadcastsMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "r1", seatRoom()); err != nil {
		t.Fatalf("create: %v", err)
	}

	out := make(chan Snapshot, 2)
	cancel := s.Watch("r1", "w1", out)
	defer cancel()
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	if err := s.Delete(ctx, "r1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	snap := recvSnapshot(t, out, 100*time.Millisecond)
	if !snap.Missing {
		t.Fatalf("expected missing after delete, got %+v", snap)
	}

	if _, err := s.Get(ctx, "r1"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("want ErrRoomNotFound after delete, got %v", err)
	}
}

func TestSlowWatcherIsDropped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "r1", seatRoom()); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Capacity 1: the initial snapshot fills the buffer and the watcher
	// never drains it, so the next broadcast drops the feed.
	out := make(chan Snapshot, 1)
	cancel := s.Watch("r1", "w1", out)
	defer cancel()

	if err := s.Merge(ctx, "r1", room.Update{room.FieldRevealed: true}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	_ = recvSnapshot(t, out, 100*time.Millisecond) // the buffered initial snapshot
	recvClosed(t, out, 100*time.Millisecond)
}

func TestCancelStopsTheFeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "r1", seatRoom()); err != nil {
		t.Fatalf("create: %v", err)
	}

	out := make(chan Snapshot, 4)
	cancel := s.Watch("r1", "w1", out)
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	cancel()
	cancel() // idempotent

	if err := s.Merge(ctx, "r1", room.Update{room.FieldRevealed: true}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	recvNoSnapshot(t, out, 100*time.Millisecond)
}

func TestCreateExistingRoomFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "r1", seatRoom()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(ctx, "r1", seatRoom()); !errors.Is(err, ErrRoomExists) {
		t.Fatalf("want ErrRoomExists, got %v", err)
	}
}

func TestMergeAbsentRoomFails(t *testing.T) {
	s := newTestStore(t)

	err := s.Merge(context.Background(), "nope", room.Update{room.FieldRevealed: true})
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("want ErrRoomNotFound, got %v", err)
	}
}

func TestCloseShutsDownWatchers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "r1", seatRoom()); err != nil {
		t.Fatalf("create: %v", err)
	}

	out := make(chan Snapshot, 2)
	_ = s.Watch("r1", "w1", out)
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	s.Close()
	recvClosed(t, out, 100*time.Millisecond)

	if err := s.Merge(ctx, "r1", room.Update{room.FieldRevealed: true}); !errors.Is(err, ErrClosed) {
		t.Fatalf("want ErrClosed after shutdown, got %v", err)
	}
}
