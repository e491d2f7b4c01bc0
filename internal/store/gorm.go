package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/valorant-veto/internal/engine"
)

type roomRecord struct {
	Code      string    `gorm:"primaryKey;size:16"`
	MatchID   string    `gorm:"index"`
	Payload   string    `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (roomRecord) TableName() string {
	return "veto_rooms"
}

// Gorm stores rooms as JSON documents in PostgreSQL.
type Gorm struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the rooms table.
func OpenPostgres(dsn string) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewGorm(db)
}

func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&roomRecord{}); err != nil {
		return nil, fmt.Errorf("migrate rooms: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) Save(ctx context.Context, r engine.Room) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode room: %w", err)
	}
	rec := roomRecord{
		Code:      r.RoomCode,
		MatchID:   r.MatchID,
		Payload:   string(payload),
		CreatedAt: r.CreatedAt,
	}
	err = g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"match_id", "payload", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save room %s: %w", r.RoomCode, err)
	}
	return nil
}

func (g *Gorm) Load(ctx context.Context, code string) (engine.Room, error) {
	var rec roomRecord
	err := g.db.WithContext(ctx).First(&rec, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.Room{}, ErrNotFound
	}
	if err != nil {
		return engine.Room{}, fmt.Errorf("load room %s: %w", code, err)
	}
	return decode(rec)
}

func (g *Gorm) Delete(ctx context.Context, code string) error {
	res := g.db.WithContext(ctx).Delete(&roomRecord{}, "code = ?", code)
	if res.Error != nil {
		return fmt.Errorf("delete room %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) List(ctx context.Context) ([]engine.Room, error) {
	var recs []roomRecord
	if err := g.db.WithContext(ctx).Order("code").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	out := make([]engine.Room, 0, len(recs))
	for _, rec := range recs {
		r, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func decode(rec roomRecord) (engine.Room, error) {
	var r engine.Room
	if err := json.Unmarshal([]byte(rec.Payload), &r); err != nil {
		return engine.Room{}, fmt.Errorf("decode room %s: %w", rec.Code, err)
	}
	return r, nil
}
