// Package room holds the shared room document and the pure transition rules
// that turn participant actions into field-level merge updates. Nothing in
// this package does I/O; the store applies the updates and the sync layer
// carries them.
package room

import "errors"

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnknownPlayer = errors.New("player not in room")
	ErrRoundRevealed = errors.New("cards are already revealed")
	ErrNotOwner      = errors.New("only the room owner may do this")
)

// Player is one participant's seat within a room. Card 0 means no card has
// been selected this round; 0 is outside the generated deck, so it never
// collides with a real vote.
type Player struct {
	Name string  `json:"name"`
	Card float64 `json:"card"`
}

// Room is the authoritative shared document, one per session. Players is
// keyed by participant key. The struct doubles as the wire shape exchanged
// with the store and with clients.
type Room struct {
	Name     string            `json:"name"`
	OwnerID  string            `json:"ownerId"`
	Revealed bool              `json:"revealed"`
	Players  map[string]Player `json:"players"`
}

// New returns a fresh collecting-state room owned by ownerKey.
func New(name, ownerKey string) Room {
	return Room{
		Name:    name,
		OwnerID: ownerKey,
		Players: map[string]Player{},
	}
}

// Clone returns a copy whose players map is independent of the receiver's.
func (r Room) Clone() Room {
	players := make(map[string]Player, len(r.Players))
	for key, p := range r.Players {
		players[key] = p
	}
	r.Players = players
	return r
}

// Join creates a seat for key with the given display name and no card
// selected. Duplicate names are allowed; seats are distinct by key. Joining
// while cards are revealed pulls the room back to collecting in the same
// merge, so a reveal only ever covers the current round's cards.
func Join(r Room, name, key string) (Update, error) {
	if name == "" || key == "" {
		return nil, ErrInvalidInput
	}

	upd := Update{PlayerPath(key): Player{Name: name}}
	if r.Revealed {
		upd[FieldRevealed] = false
	}
	return upd, nil
}

// SelectCard records key's estimate for the current round. The seat must
// already exist, and cards are frozen while the round is revealed. Deck
// membership is not checked here; the transport layer is the gate.
func SelectCard(r Room, key string, value float64) (Update, error) {
	if _, ok := r.Players[key]; !ok {
		return nil, ErrUnknownPlayer
	}
	if r.Revealed {
		return nil, ErrRoundRevealed
	}
	return Update{CardPath(key): value}, nil
}

// Reveal shows or hides everyone's cards. Owner only.
func Reveal(r Room, actingKey string, show bool) (Update, error) {
	if actingKey != r.OwnerID {
		return nil, ErrNotOwner
	}
	return Update{FieldRevealed: show}, nil
}

// Reset hides the cards and clears every seat's selection in a single merge,
// so a reset can never leave half a round behind. Owner only, idempotent.
func Reset(r Room, actingKey string) (Update, error) {
	if actingKey != r.OwnerID {
		return nil, ErrNotOwner
	}

	upd := Update{FieldRevealed: false}
	for key := range r.Players {
		upd[CardPath(key)] = float64(0)
	}
	return upd, nil
}

// AverageEligible reports whether the average may be computed and shown.
func AverageEligible(r Room) bool {
	return r.Revealed
}
