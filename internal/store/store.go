// Package store hosts the authoritative shared copy of every room document
// and the snapshot feed that keeps clients consistent. Writes are field-level
// merges; watchers always receive full documents, never diffs.
package store

import (
	"context"
	"errors"

	"github.com/scrumdeck/backend/internal/room"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
	ErrClosed       = errors.New("store closed")
)

// Snapshot is one full-document observation of a room. Missing marks a room
// that does not exist — never created, or deleted since.
type Snapshot struct {
	Room    room.Room
	Version int
	Missing bool
}

// Store is the shared document store contract: get, field-level merge, and a
// change feed delivering a full snapshot on every change plus a missing
// signal. Cross-client write races resolve by the store's own write ordering,
// last write wins per field.
type Store interface {
	Create(ctx context.Context, roomID string, r room.Room) error
	Get(ctx context.Context, roomID string) (room.Room, error)
	Merge(ctx context.Context, roomID string, upd room.Update) error
	Delete(ctx context.Context, roomID string) error

	// Watch registers outbox on roomID's snapshot feed and immediately
	// delivers the current state, or a Missing snapshot when the room does
	// not exist. The feed stays registered across create and delete until
	// the returned cancel runs; outbox is closed if the watcher falls
	// behind or the store shuts down.
	Watch(roomID, watcherID string, outbox chan<- Snapshot) (cancel func())

	Close()
}
