package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/listforge/listforge/internal/domain"
	"github.com/listforge/listforge/internal/infra/observability"
)

// Manager is the in-memory workflow registry, keyed by session id.
type Manager struct {
	mu        sync.RWMutex
	workflows map[string]*Workflow
	idleTTL   time.Duration
	log       *zap.Logger
}

// NewManager creates a workflow manager. idleTTL bounds how long an
// untouched workflow survives before the sweeper evicts it; zero disables
// eviction.
func NewManager(idleTTL time.Duration, log *zap.Logger) *Manager {
	return &Manager{
		workflows: make(map[string]*Workflow),
		idleTTL:   idleTTL,
		log:       log,
	}
}

// Create registers a new workflow for owner with the uploaded image.
func (m *Manager) Create(owner, brand string, image []byte, imageMIME string) *Workflow {
	now := time.Now()
	w := &Workflow{
		ID:        uuid.NewString(),
		Owner:     owner,
		Brand:     brand,
		Image:     image,
		ImageMIME: imageMIME,
		Phase:     domain.PhaseUploading,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.workflows[w.ID] = w
	m.mu.Unlock()

	observability.ActiveWorkflows.Inc()
	m.log.Info("workflow created",
		zap.String("workflow_id", w.ID),
		zap.String("owner", owner))
	return w
}

// Get returns the workflow with the given id if it belongs to owner.
// Ownership mismatches are indistinguishable from missing workflows.
func (m *Manager) Get(id, owner string) (*Workflow, error) {
	m.mu.RLock()
	w, ok := m.workflows[id]
	m.mu.RUnlock()
	if !ok || w.Owner != owner {
		return nil, domain.ErrWorkflowNotFound
	}
	return w, nil
}

// Remove deletes a workflow from the registry.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	_, ok := m.workflows[id]
	delete(m.workflows, id)
	m.mu.Unlock()
	if ok {
		observability.ActiveWorkflows.Dec()
	}
}

// Count returns the number of live workflows.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workflows)
}

// Run sweeps idle workflows until ctx is done. Blocks; run in a goroutine.
func (m *Manager) Run(ctx context.Context) {
	if m.idleTTL <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(m.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	cutoff := time.Now().Add(-m.idleTTL)
	var expired []string

	m.mu.Lock()
	for id, w := range m.workflows {
		if w.UpdatedAt.Before(cutoff) {
			delete(m.workflows, id)
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		observability.ActiveWorkflows.Dec()
		m.log.Info("workflow expired", zap.String("workflow_id", id))
	}
}
