package types

import "github.com/scrumdeck/backend/internal/room"

// Client -> server actions.
const (
	ActionJoin       = "join"
	ActionSelectCard = "select_card"
	ActionReveal     = "reveal"
	ActionReset      = "reset"
)

// Server -> client frames.
const (
	MsgRoomSnapshot = "room_snapshot"
	MsgRoomMissing  = "room_missing"
	MsgIdentity     = "identity"
	MsgError        = "error"
)

// ClientMessage is one action from a participant.
type ClientMessage struct {
	Type string  `json:"type"`
	Name string  `json:"name,omitempty"`
	Card float64 `json:"card,omitempty"`
	Show bool    `json:"show,omitempty"`
}

// ServerMessage is one frame pushed to a participant. Average is present
// only on revealed snapshots of rooms with at least one player; Key rides
// identity frames so the client can persist its seat.
type ServerMessage struct {
	Type    string     `json:"type"`
	Room    *room.Room `json:"room,omitempty"`
	Average *float64   `json:"average,omitempty"`
	Key     string     `json:"key,omitempty"`
	Code    string     `json:"code,omitempty"`
	Error   string     `json:"error,omitempty"`
}
