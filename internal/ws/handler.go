package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/scrumdeck/backend/internal/identity"
	"github.com/scrumdeck/backend/internal/room"
	"github.com/scrumdeck/backend/internal/roomsync"
	"github.com/scrumdeck/backend/internal/store"
	"github.com/scrumdeck/backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	outboxSize   = 16
)

// Handler upgrades a client onto a room's realtime feed. Snapshots stream
// out, participant actions come in; the participant key rides the device
// cookie slot, with a fresh binding handed back over the wire on join when
// the slot holds nothing for this room.
func Handler(ch *roomsync.Channel, cards []float64, origins []string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room")
		if roomID == "" {
			http.Error(w, "missing room", http.StatusBadRequest)
			return
		}

		// The cookie can only be read here; once the connection is
		// upgraded the response is gone, so the session keeps its own
		// slot seeded from it.
		slot := &identity.MemKV{}
		if key, ok := identity.NewBinder(identity.NewCookieKV(w, r)).Resolve(roomID); ok {
			slot.Set(key)
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		sess := &session{
			conn:   conn,
			ch:     ch,
			cards:  cards,
			binder: identity.NewBinder(slot),
			roomID: roomID,
			outbox: make(chan types.ServerMessage, outboxSize),
			log:    log.With(zap.String("room_id", roomID)),
		}
		sess.run(r.Context())
	}
}

type session struct {
	conn   *websocket.Conn
	ch     *roomsync.Channel
	cards  []float64
	binder *identity.Binder
	roomID string
	outbox chan types.ServerMessage
	log    *zap.Logger

	// The snapshot callback and the reader loop run on different
	// goroutines; mu guards the observed state between them.
	mu       sync.Mutex
	observed room.Room
	seen     bool
}

func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Writer goroutine: serializes every outgoing frame.
	go s.writeLoop(ctx)

	unsubscribe := s.ch.Subscribe(ctx, s.roomID, s.onSnapshot, s.onMissing)
	defer unsubscribe()

	s.readLoop(ctx)
}

// onSnapshot records the new observed state and pushes it to the client,
// with the average attached whenever the round is revealed.
func (s *session) onSnapshot(r room.Room) {
	s.mu.Lock()
	s.observed = r
	s.seen = true
	s.mu.Unlock()

	msg := types.ServerMessage{Type: types.MsgRoomSnapshot, Room: &r}
	if room.AverageEligible(r) {
		if avg, ok := room.Average(r); ok {
			msg.Average = &avg
		}
	}
	s.send(msg)
}

// onMissing tells the client the room does not exist. The feed stays open:
// should the room appear later, snapshots resume.
func (s *session) onMissing() {
	s.mu.Lock()
	s.observed = room.Room{}
	s.seen = false
	s.mu.Unlock()

	s.send(types.ServerMessage{Type: types.MsgRoomMissing})
}

func (s *session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.outbox:
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			_ = s.conn.Write(wctx, websocket.MessageText, payload)
			cancel()
		}
	}
}

func (s *session) readLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			s.sendError("bad_json", "malformed message")
			continue
		}

		s.handle(ctx, cm)
	}
}

func (s *session) handle(ctx context.Context, cm types.ClientMessage) {
	s.mu.Lock()
	observed, seen := s.observed, s.seen
	s.mu.Unlock()

	if !seen {
		s.sendError("no_room", "no room state observed yet")
		return
	}

	key, _ := s.binder.Resolve(s.roomID)

	var (
		upd room.Update
		err error
	)

	switch cm.Type {
	case types.ActionJoin:
		if key == "" {
			key = s.binder.Bind(identity.NewRawID(), s.roomID)
			s.send(types.ServerMessage{Type: types.MsgIdentity, Key: key})
		}
		upd, err = room.Join(observed, cm.Name, key)

	case types.ActionSelectCard:
		if key == "" {
			s.sendError("not_joined", "join before selecting a card")
			return
		}
		if !slices.Contains(s.cards, cm.Card) {
			s.sendError("invalid_card", "card is not in the deck")
			return
		}
		upd, err = room.SelectCard(observed, key, cm.Card)

	case types.ActionReveal:
		upd, err = room.Reveal(observed, key, cm.Show)

	case types.ActionReset:
		upd, err = room.Reset(observed, key)

	default:
		s.sendError("unknown_type", "unknown message type")
		return
	}

	if err != nil {
		s.sendError(errCode(err), err.Error())
		return
	}

	if err := s.ch.Publish(ctx, s.roomID, upd); err != nil {
		s.log.Warn("publish failed", zap.Error(err))
		s.sendError(errCode(err), "update was not applied")
	}
}

func (s *session) send(msg types.ServerMessage) {
	select {
	case s.outbox <- msg:
	default:
		// Writer is saturated; the next snapshot supersedes this frame.
	}
}

func (s *session) sendError(code, message string) {
	s.send(types.ServerMessage{Type: types.MsgError, Code: code, Error: message})
}

func errCode(err error) string {
	switch {
	case errors.Is(err, room.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, room.ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, room.ErrRoundRevealed):
		return "round_revealed"
	case errors.Is(err, room.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, store.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, roomsync.ErrWriteFailed):
		return "write_failed"
	default:
		return "internal"
	}
}
