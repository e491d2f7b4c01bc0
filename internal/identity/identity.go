// Package identity carries the signed-in viewer as an explicit value.
//
// Core logic never reads the viewer from ambient state: shells ask a Source
// for the current viewer and hand the result to the resolver. A Source that
// has not resolved yet reports ok=false, which callers treat as "not
// authorized" rather than as an error.
package identity

import (
	"context"
	"sync"
)

type Viewer struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Source yields the current viewer; ok is false while it is still loading.
type Source interface {
	Current() (v Viewer, ok bool)
}

// Static is a Source that is resolved from the start.
type Static Viewer

func (s Static) Current() (Viewer, bool) {
	v := Viewer(s)
	return v, v.UserID != ""
}

// Deferred resolves once, some time after it is handed out.
type Deferred struct {
	mu    sync.RWMutex
	v     Viewer
	ok    bool
	once  sync.Once
	ready chan struct{}
}

func NewDeferred() *Deferred {
	return &Deferred{ready: make(chan struct{})}
}

// Resolve sets the viewer. Only the first call has an effect.
func (d *Deferred) Resolve(v Viewer) {
	d.once.Do(func() {
		d.mu.Lock()
		d.v, d.ok = v, v.UserID != ""
		d.mu.Unlock()
		close(d.ready)
	})
}

func (d *Deferred) Current() (Viewer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.v, d.ok
}

// Ready is closed after Resolve.
func (d *Deferred) Ready() <-chan struct{} { return d.ready }

type ctxKey struct{}

func WithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, ctxKey{}, v)
}

func FromContext(ctx context.Context) (Viewer, bool) {
	v, ok := ctx.Value(ctxKey{}).(Viewer)
	return v, ok && v.UserID != ""
}
