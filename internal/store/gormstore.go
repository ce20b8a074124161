package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scrumdeck/backend/internal/room"
)

// roomRecord is the durable shape of one room document. Players travel as a
// JSON blob; nothing ever queries inside them.
type roomRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string
	OwnerID   string
	Revealed  bool
	Players   []byte `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (roomRecord) TableName() string { return "room_documents" }

func newRoomRecord(id string, r room.Room) (roomRecord, error) {
	players, err := json.Marshal(r.Players)
	if err != nil {
		return roomRecord{}, fmt.Errorf("encode players: %w", err)
	}
	return roomRecord{
		ID:       id,
		Name:     r.Name,
		OwnerID:  r.OwnerID,
		Revealed: r.Revealed,
		Players:  players,
	}, nil
}

func (rec roomRecord) toRoom() (room.Room, error) {
	r := room.New(rec.Name, rec.OwnerID)
	r.Revealed = rec.Revealed
	if len(rec.Players) > 0 {
		if err := json.Unmarshal(rec.Players, &r.Players); err != nil {
			return room.Room{}, fmt.Errorf("decode players: %w", err)
		}
	}
	return r, nil
}

// GormStore mirrors every mutation of the in-memory store into postgres so
// rooms survive a restart. The memory copy stays authoritative for reads and
// for the snapshot feed; the database is write-through only, trailing the
// authoritative copy by at most one write.
type GormStore struct {
	mem *MemStore
	db  *gorm.DB
	log *zap.Logger
}

func OpenGormStore(mem *MemStore, dsn string, log *zap.Logger) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&roomRecord{}); err != nil {
		return nil, fmt.Errorf("migrate room documents: %w", err)
	}
	return &GormStore{mem: mem, db: db, log: log}, nil
}

// Load rehydrates the memory store from the durable copy.
func (g *GormStore) Load(ctx context.Context) error {
	var recs []roomRecord
	if err := g.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return fmt.Errorf("load room documents: %w", err)
	}

	loaded := 0
	for _, rec := range recs {
		r, err := rec.toRoom()
		if err != nil {
			g.log.Warn("skipping unreadable room document",
				zap.String("room_id", rec.ID), zap.Error(err))
			continue
		}
		if err := g.mem.Create(ctx, rec.ID, r); err != nil {
			return err
		}
		loaded++
	}

	g.log.Info("rooms loaded", zap.Int("count", loaded))
	return nil
}

func (g *GormStore) Create(ctx context.Context, roomID string, r room.Room) error {
	if err := g.mem.Create(ctx, roomID, r); err != nil {
		return err
	}
	return g.save(ctx, roomID)
}

func (g *GormStore) Get(ctx context.Context, roomID string) (room.Room, error) {
	return g.mem.Get(ctx, roomID)
}

func (g *GormStore) Merge(ctx context.Context, roomID string, upd room.Update) error {
	if err := g.mem.Merge(ctx, roomID, upd); err != nil {
		return err
	}
	return g.save(ctx, roomID)
}

func (g *GormStore) Delete(ctx context.Context, roomID string) error {
	if err := g.mem.Delete(ctx, roomID); err != nil {
		return err
	}
	if err := g.db.WithContext(ctx).Delete(&roomRecord{ID: roomID}).Error; err != nil {
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}
	return nil
}

func (g *GormStore) Watch(roomID, watcherID string, outbox chan<- Snapshot) func() {
	return g.mem.Watch(roomID, watcherID, outbox)
}

func (g *GormStore) Close() {
	g.mem.Close()
}

// save reads the post-merge document back and upserts it whole. Room writes
// are rare enough that re-writing the full document beats replicating the
// merge grammar in SQL.
func (g *GormStore) save(ctx context.Context, roomID string) error {
	r, err := g.mem.Get(ctx, roomID)
	if err != nil {
		return err
	}
	rec, err := newRoomRecord(roomID, r)
	if err != nil {
		return err
	}
	if err := g.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("persist room %s: %w", roomID, err)
	}
	return nil
}
