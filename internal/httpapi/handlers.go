package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scrumdeck/backend/internal/identity"
	"github.com/scrumdeck/backend/internal/room"
	"github.com/scrumdeck/backend/internal/roomsync"
	"github.com/scrumdeck/backend/internal/store"
)

type API struct {
	store store.Store
	ch    *roomsync.Channel
	log   *zap.Logger
}

func NewAPI(st store.Store, ch *roomsync.Channel, log *zap.Logger) *API {
	return &API{store: st, ch: ch, log: log}
}

type createRoomRequest struct {
	Name string `json:"name"`
}

type createRoomResponse struct {
	ID       string `json:"id"`
	OwnerKey string `json:"ownerKey"`
}

// CreateRoom allocates a room owned by the calling device. The owner's
// participant key is bound to the device slot so the creator keeps control
// of reveal and reset across reloads.
func (a *API) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "room name required", http.StatusBadRequest)
		return
	}

	roomID := uuid.NewString()
	ownerKey := identity.NewBinder(identity.NewCookieKV(w, r)).Bind(identity.NewRawID(), roomID)

	if err := a.store.Create(r.Context(), roomID, room.New(req.Name, ownerKey)); err != nil {
		a.log.Error("create room", zap.Error(err))
		http.Error(w, "failed to create room", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, createRoomResponse{ID: roomID, OwnerKey: ownerKey})
}

type roomResponse struct {
	room.Room
	Average *float64 `json:"average,omitempty"`
}

// GetRoom returns the current room document, with the average attached when
// the round is revealed.
func (a *API) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	current, err := a.store.Get(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		a.log.Error("get room", zap.String("room_id", roomID), zap.Error(err))
		http.Error(w, "failed to load room", http.StatusInternalServerError)
		return
	}

	resp := roomResponse{Room: current}
	if room.AverageEligible(current) {
		if avg, ok := room.Average(current); ok {
			resp.Average = &avg
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type joinRequest struct {
	Name string `json:"name"`
}

type joinResponse struct {
	Key string `json:"key"`
}

// JoinRoom claims a seat over plain HTTP. The device slot is resolved or
// freshly bound, so a returning participant keeps their seat and a new one
// gets a key they can also read back from the response.
func (a *API) JoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}

	current, err := a.store.Get(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		a.log.Error("join room", zap.String("room_id", roomID), zap.Error(err))
		http.Error(w, "failed to load room", http.StatusInternalServerError)
		return
	}

	binder := identity.NewBinder(identity.NewCookieKV(w, r))
	key, ok := binder.Resolve(roomID)
	if !ok {
		key = binder.Bind(identity.NewRawID(), roomID)
	}

	upd, err := room.Join(current, req.Name, key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := a.ch.Publish(r.Context(), roomID, upd); err != nil {
		a.log.Error("publish join", zap.String("room_id", roomID), zap.Error(err))
		http.Error(w, "update was not applied", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, joinResponse{Key: key})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
