// Package store keeps room documents for the reference server. Rooms are
// stored whole; there is no schema beyond the room code key.
package store

import (
	"context"
	"errors"

	"github.com/DoyleJ11/valorant-veto/internal/engine"
)

var ErrNotFound = errors.New("room not found")

type Store interface {
	Save(ctx context.Context, r engine.Room) error
	Load(ctx context.Context, code string) (engine.Room, error)
	Delete(ctx context.Context, code string) error
	List(ctx context.Context) ([]engine.Room, error)
}
