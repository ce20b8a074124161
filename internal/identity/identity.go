// Package identity derives and persists the opaque per-room participant key
// that lets a returning participant resume their seat without authentication.
// The key is a bearer token, not a credential: anyone holding the string can
// act as that seat, and a key for room A means nothing in room B.
package identity

import (
	"strings"

	"github.com/google/uuid"
)

// separator joins the raw id and room id segments of a key. Raw ids are
// uuids and never contain it, keeping the room segment unambiguous.
const separator = "_"

// KV is the single scoped slot on the participant's device. It survives
// restarts and holds one value; implementations carry no room scoping of
// their own — that is the Binder's job.
type KV interface {
	Get() (string, bool)
	Set(value string)
}

// Binder binds one device slot to one seat-within-one-room.
type Binder struct {
	kv KV
}

func NewBinder(kv KV) *Binder {
	return &Binder{kv: kv}
}

// Resolve returns the persisted participant key only when it was bound for
// roomID. A key cached for a different room is treated as absent rather than
// silently reused.
func (b *Binder) Resolve(roomID string) (string, bool) {
	key, ok := b.kv.Get()
	if !ok || key == "" {
		return "", false
	}
	if RoomID(key) != roomID {
		return "", false
	}
	return key, true
}

// Bind persists {rawID}_{roomID} as the slot's sole value, overwriting any
// prior binding (including one for another room), and returns the key.
func (b *Binder) Bind(rawID, roomID string) string {
	key := rawID + separator + roomID
	b.kv.Set(key)
	return key
}

// RoomID extracts the room segment of a participant key, or "" when the key
// carries none.
func RoomID(key string) string {
	_, roomID, ok := strings.Cut(key, separator)
	if !ok {
		return ""
	}
	return roomID
}

// NewRawID returns a fresh random participant id.
func NewRawID() string {
	return uuid.NewString()
}

// MemKV is an in-process slot, used by tests and by a live connection whose
// device slot can no longer be written.
type MemKV struct {
	value string
	ok    bool
}

func (m *MemKV) Get() (string, bool) { return m.value, m.ok }

func (m *MemKV) Set(value string) { m.value, m.ok = value, true }
