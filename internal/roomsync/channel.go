// Package roomsync bridges a client's observed room state to the
// authoritative store: full-document snapshots flow in through a
// subscription, field-level merges flow out through Publish. No optimistic
// local application happens anywhere — a writer sees its own write only via
// the next snapshot.
package roomsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scrumdeck/backend/internal/room"
	"github.com/scrumdeck/backend/internal/store"
)

// ErrWriteFailed marks a merge the store rejected or failed to apply. The
// caller's observed state is untouched and no retry is attempted; the next
// snapshot corrects any divergence.
var ErrWriteFailed = errors.New("store write failed")

const outboxSize = 8

type Channel struct {
	store store.Store
	log   *zap.Logger
}

func NewChannel(st store.Store, log *zap.Logger) *Channel {
	return &Channel{store: st, log: log}
}

// Subscribe opens a long-lived snapshot feed for roomID. onSnapshot receives
// every full-document change, onMissing fires when the room does not exist
// or is deleted. Both run sequentially on a single goroutine, so no two
// callbacks for one subscription overlap. The returned cancel tears the feed
// down and is safe to call more than once.
func (c *Channel) Subscribe(ctx context.Context, roomID string, onSnapshot func(room.Room), onMissing func()) func() {
	outbox := make(chan store.Snapshot, outboxSize)
	watcherID := uuid.NewString()

	cancelWatch := c.store.Watch(roomID, watcherID, outbox)
	stop := make(chan struct{})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case snap, ok := <-outbox:
				if !ok {
					// Dropped by the store (slow, or store shut down).
					c.log.Warn("snapshot feed closed by store", zap.String("room_id", roomID))
					return
				}
				if snap.Missing {
					onMissing()
					continue
				}
				onSnapshot(snap.Room)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancelWatch()
			close(stop)
		})
	}
}

// Publish sends a field-level merge to the authoritative store. Absent rooms
// surface as store.ErrRoomNotFound; any other failure wraps ErrWriteFailed.
func (c *Channel) Publish(ctx context.Context, roomID string, upd room.Update) error {
	if err := c.store.Merge(ctx, roomID, upd); err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}
