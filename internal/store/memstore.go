package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/scrumdeck/backend/internal/room"
)

type memMsg interface{ isMemMsg() }

type createMsg struct {
	id    string
	room  room.Room
	reply chan error
}

type getMsg struct {
	id    string
	reply chan getReply
}

type getReply struct {
	room room.Room
	err  error
}

type mergeMsg struct {
	id    string
	upd   room.Update
	reply chan error
}

type deleteMsg struct {
	id    string
	reply chan error
}

type watchMsg struct {
	id        string
	watcherID string
	outbox    chan<- Snapshot
}

type unwatchMsg struct {
	id        string
	watcherID string
}

type shutdownMsg struct{}

func (createMsg) isMemMsg()   {}
func (getMsg) isMemMsg()      {}
func (mergeMsg) isMemMsg()    {}
func (deleteMsg) isMemMsg()   {}
func (watchMsg) isMemMsg()    {}
func (unwatchMsg) isMemMsg()  {}
func (shutdownMsg) isMemMsg() {}

type doc struct {
	room    room.Room
	version int
}

// MemStore keeps every document inside one goroutine. All access goes through
// the inbox, so writes are serialized and every mutation broadcasts exactly
// one snapshot in write order. Watchers are tracked independently of the
// documents: a feed on a missing room stays registered and hears about a
// later create.
type MemStore struct {
	inbox    chan memMsg
	docs     map[string]*doc
	watchers map[string]map[string]chan<- Snapshot
	ctx      context.Context
	cancel   context.CancelFunc
	log      *zap.Logger
}

func NewMemStore(parent context.Context, log *zap.Logger) *MemStore {
	ctx, cancel := context.WithCancel(parent)

	s := &MemStore{
		inbox:    make(chan memMsg, 64),
		docs:     make(map[string]*doc),
		watchers: make(map[string]map[string]chan<- Snapshot),
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}

	go s.loop()
	return s
}

func (s *MemStore) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case createMsg:
				if _, exists := s.docs[msg.id]; exists {
					msg.reply <- ErrRoomExists
					break
				}
				s.docs[msg.id] = &doc{room: msg.room}
				s.broadcast(msg.id, Snapshot{Room: msg.room})
				s.log.Info("room created", zap.String("room_id", msg.id))
				msg.reply <- nil

			case getMsg:
				d, exists := s.docs[msg.id]
				if !exists {
					msg.reply <- getReply{err: ErrRoomNotFound}
					break
				}
				msg.reply <- getReply{room: d.room.Clone()}

			case mergeMsg:
				d, exists := s.docs[msg.id]
				if !exists {
					msg.reply <- ErrRoomNotFound
					break
				}
				// Apply copies, so snapshots already broadcast keep
				// pointing at the pre-merge document.
				d.room = msg.upd.Apply(d.room)
				d.version++
				s.broadcast(msg.id, Snapshot{Room: d.room, Version: d.version})
				msg.reply <- nil

			case deleteMsg:
				if _, exists := s.docs[msg.id]; exists {
					delete(s.docs, msg.id)
					s.broadcast(msg.id, Snapshot{Missing: true})
					s.log.Info("room deleted", zap.String("room_id", msg.id))
				}
				msg.reply <- nil

			case watchMsg:
				ws, ok := s.watchers[msg.id]
				if !ok {
					ws = make(map[string]chan<- Snapshot)
					s.watchers[msg.id] = ws
				}
				ws[msg.watcherID] = msg.outbox
				if d, exists := s.docs[msg.id]; exists {
					msg.outbox <- Snapshot{Room: d.room, Version: d.version}
				} else {
					msg.outbox <- Snapshot{Missing: true}
				}

			case unwatchMsg:
				if ws, ok := s.watchers[msg.id]; ok {
					delete(ws, msg.watcherID)
					if len(ws) == 0 {
						delete(s.watchers, msg.id)
					}
				}

			case shutdownMsg:
				s.shutdown()
				return
			}
		}
	}
}

func (s *MemStore) shutdown() {
	for id, ws := range s.watchers {
		for watcherID, ch := range ws {
			close(ch)
			delete(ws, watcherID)
		}
		delete(s.watchers, id)
	}
	s.cancel()
}

func (s *MemStore) broadcast(id string, snap Snapshot) {
	for watcherID, ch := range s.watchers[id] {
		select {
		case ch <- snap:
		default:
			// Watcher is slow or full; drop it.
			close(ch)
			delete(s.watchers[id], watcherID)
			s.log.Warn("dropped slow watcher",
				zap.String("room_id", id), zap.String("watcher_id", watcherID))
		}
	}
}

func (s *MemStore) Create(ctx context.Context, roomID string, r room.Room) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, createMsg{id: roomID, room: r.Clone(), reply: reply}); err != nil {
		return err
	}
	return s.recvErr(ctx, reply)
}

func (s *MemStore) Get(ctx context.Context, roomID string) (room.Room, error) {
	reply := make(chan getReply, 1)
	if err := s.send(ctx, getMsg{id: roomID, reply: reply}); err != nil {
		return room.Room{}, err
	}

	select {
	case r := <-reply:
		return r.room, r.err
	case <-s.ctx.Done():
		return room.Room{}, ErrClosed
	case <-ctx.Done():
		return room.Room{}, ctx.Err()
	}
}

func (s *MemStore) Merge(ctx context.Context, roomID string, upd room.Update) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, mergeMsg{id: roomID, upd: upd, reply: reply}); err != nil {
		return err
	}
	return s.recvErr(ctx, reply)
}

func (s *MemStore) Delete(ctx context.Context, roomID string) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, deleteMsg{id: roomID, reply: reply}); err != nil {
		return err
	}
	return s.recvErr(ctx, reply)
}

func (s *MemStore) Watch(roomID, watcherID string, outbox chan<- Snapshot) func() {
	select {
	case s.inbox <- watchMsg{id: roomID, watcherID: watcherID, outbox: outbox}:
	case <-s.ctx.Done():
		close(outbox)
		return func() {}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			select {
			case s.inbox <- unwatchMsg{id: roomID, watcherID: watcherID}:
			case <-s.ctx.Done():
			}
		})
	}
}

func (s *MemStore) Close() {
	select {
	case s.inbox <- shutdownMsg{}:
	case <-s.ctx.Done():
	}
}

func (s *MemStore) send(ctx context.Context, m memMsg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MemStore) recvErr(ctx context.Context, reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
