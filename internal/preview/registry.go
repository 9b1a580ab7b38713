package preview

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultIdleTimeout is how long an unused preview is kept.
const DefaultIdleTimeout = 30 * time.Minute

// Registry keeps live previews in memory. Nothing is persisted.
type Registry struct {
	mu      sync.Mutex
	engines map[uuid.UUID]*Engine
	idle    time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewRegistry creates a registry that expires previews idle for longer than idle.
func NewRegistry(idle time.Duration, logger *zap.Logger) *Registry {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		engines: make(map[uuid.UUID]*Engine),
		idle:    idle,
		now:     time.Now,
		logger:  logger,
	}
}

// Create starts a preview and registers it.
func (r *Registry) Create(surveyID uuid.UUID, title string, sections []Section) *Engine {
	e := NewEngine(surveyID, title, sections)
	e.now = r.now
	e.lastActive = r.now()
	r.mu.Lock()
	r.engines[e.ID()] = e
	r.mu.Unlock()
	return e
}

// Get returns a live preview.
func (r *Registry) Get(id uuid.UUID) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[id]
	return e, ok
}

// Delete discards a preview and its captured answers.
func (r *Registry) Delete(id uuid.UUID) {
	r.mu.Lock()
	delete(r.engines, id)
	r.mu.Unlock()
}

// Len returns the number of live previews.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}

// Sweep removes idle previews and returns how many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.engines {
		if e.IdleSince().Before(cutoff) {
			delete(r.engines, id)
			removed++
		}
	}
	return removed
}

// Schedule registers the sweep on c with a cron spec such as "@every 5m".
func (r *Registry) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		if n := r.Sweep(); n > 0 {
			r.logger.Info("expired idle previews", zap.Int("count", n), zap.Int("live", r.Len()))
		}
	})
}
