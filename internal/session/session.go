package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/loteamento/internal/plotmap"
)

// Manager hands out one PlotMap per browser session. A new session loads the
// block list from the registry before it is returned, mirroring a fresh page
// mount.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	registry plotmap.Registry
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

type entry struct {
	plot     *plotmap.PlotMap
	lastSeen time.Time
}

func NewManager(reg plotmap.Registry, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		registry: reg,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the PlotMap for id. When id is unknown or expired a new session
// is started and its fresh id returned; created reports that case.
func (m *Manager) Get(ctx context.Context, id string) (pm *plotmap.PlotMap, sessionID string, created bool) {
	m.mu.Lock()
	now := m.now()
	m.sweep(now)
	if e, ok := m.sessions[id]; ok {
		e.lastSeen = now
		m.mu.Unlock()
		return e.plot, id, false
	}
	sessionID = uuid.NewString()
	pm = plotmap.New(m.registry, m.logger.With("session", sessionID))
	m.sessions[sessionID] = &entry{plot: pm, lastSeen: now}
	m.mu.Unlock()

	if err := pm.Load(ctx); err != nil {
		m.logger.Error("initial load failed", "session", sessionID, "error", err)
	}
	return pm, sessionID, true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// sweep drops idle sessions. Callers hold m.mu.
func (m *Manager) sweep(now time.Time) {
	if m.ttl <= 0 {
		return
	}
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.sessions, id)
			m.logger.Debug("session expired", "session", id)
		}
	}
}
