package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/youruser/certapp/internal/batch"
	"github.com/youruser/certapp/internal/cache"
	"github.com/youruser/certapp/internal/canvas"
	imagepkg "github.com/youruser/certapp/internal/image"
	"github.com/youruser/certapp/internal/template"
)

// Workspace is one user's editing surface plus the status of its last batch.
type Workspace struct {
	ID      string
	Canvas  *canvas.Canvas
	Tracker *batch.Tracker
}

// Registry keeps workspaces in memory. Idle workspaces expire after ttl.
type Registry struct {
	items    *cache.TTLCache[string, *Workspace]
	renderer *imagepkg.Renderer
	ttl      time.Duration
	log      *zap.Logger
}

func NewRegistry(renderer *imagepkg.Renderer, ttl time.Duration, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		items:    cache.NewTTLCache[string, *Workspace](),
		renderer: renderer,
		ttl:      ttl,
		log:      log,
	}
}

func (r *Registry) Create() *Workspace {
	ws := &Workspace{
		ID:      uuid.NewString(),
		Canvas:  canvas.New(template.NewSession(), r.renderer),
		Tracker: batch.NewTracker(),
	}
	r.items.Set(ws.ID, ws, r.ttl)
	r.log.Debug("workspace created", zap.String("workspace", ws.ID))
	return ws
}

// Get returns the workspace and refreshes its idle timeout.
func (r *Registry) Get(id string) (*Workspace, bool) {
	return r.items.Get(id)
}

func (r *Registry) Delete(id string) bool {
	if _, ok := r.items.Get(id); !ok {
		return false
	}
	r.items.Delete(id)
	r.log.Debug("workspace deleted", zap.String("workspace", id))
	return true
}

func (r *Registry) Len() int { return r.items.Len() }

// RunSweeper evicts expired workspaces every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.items.Sweep(); n > 0 {
				r.log.Info("expired workspaces evicted", zap.Int("count", n), zap.Int("remaining", r.Len()))
			}
		}
	}
}
