package store

import (
	"context"
	"sort"
	"sync"

	"github.com/DoyleJ11/valorant-veto/internal/engine"
)

// Memory is a process-local Store.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]engine.Room
}

func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]engine.Room)}
}

func (m *Memory) Save(_ context.Context, r engine.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.RoomCode] = r.Clone()
	return nil
}

func (m *Memory) Load(_ context.Context, code string) (engine.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	if !ok {
		return engine.Room{}, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[code]; !ok {
		return ErrNotFound
	}
	delete(m.rooms, code)
	return nil
}

func (m *Memory) List(_ context.Context) ([]engine.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomCode < out[j].RoomCode })
	return out, nil
}
