package room

import "strings"

// Update is a field-level merge document: dotted field paths mapped to new
// values, mirroring the store's merge semantics. Exactly three path shapes
// exist:
//
//	revealed             bool
//	players.<key>        Player (a whole seat)
//	players.<key>.card   float64
//
// A merge touches only the named fields, so two participants writing
// different seats' cards concurrently never clobber each other.
type Update map[string]any

// FieldRevealed addresses the room's revealed flag.
const FieldRevealed = "revealed"

const (
	fieldPlayers = "players"
	fieldCard    = "card"
)

// PlayerPath addresses a whole seat.
func PlayerPath(key string) string {
	return fieldPlayers + "." + key
}

// CardPath addresses one seat's card value.
func CardPath(key string) string {
	return fieldPlayers + "." + key + "." + fieldCard
}

// Apply merges u into a copy of r and returns the result. A card write for a
// seat that does not exist is dropped rather than conjuring a player, and
// unknown paths are ignored.
func (u Update) Apply(r Room) Room {
	next := r.Clone()
	if next.Players == nil {
		next.Players = map[string]Player{}
	}

	for path, val := range u {
		switch {
		case path == FieldRevealed:
			if show, ok := val.(bool); ok {
				next.Revealed = show
			}

		case strings.HasPrefix(path, fieldPlayers+"."):
			rest := strings.TrimPrefix(path, fieldPlayers+".")
			if key, isCard := strings.CutSuffix(rest, "."+fieldCard); isCard {
				card, ok := cardValue(val)
				if !ok {
					continue
				}
				if p, exists := next.Players[key]; exists {
					p.Card = card
					next.Players[key] = p
				}
				continue
			}
			if p, ok := val.(Player); ok {
				next.Players[rest] = p
			}
		}
	}

	return next
}

func cardValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
