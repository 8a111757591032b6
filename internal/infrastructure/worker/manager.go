// Package worker runs the portal's background jobs.
package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker defines the interface for background workers
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// Manager manages lifecycle of multiple workers
type Manager struct {
	workers []Worker
	logger  *zap.Logger

	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewManager creates a new worker manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		workers: make([]Worker, 0),
		logger:  logger,
	}
}

// Register adds a worker to be managed
func (m *Manager) Register(worker Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, worker)
	m.logger.Info("Worker registered",
		zap.String("worker_name", worker.Name()),
		zap.Int("total_workers", len(m.workers)))
}

// StartAll starts all registered workers
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return fmt.Errorf("workers already running")
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.isRunning = true
	m.mu.Unlock()

	m.logger.Info("Starting all workers", zap.Int("count", len(m.workers)))

	for _, worker := range m.workers {
		if err := worker.Start(m.ctx); err != nil {
			m.logger.Error("Failed to start worker",
				zap.String("worker_name", worker.Name()),
				zap.Error(err))
			// Continue starting other workers even if one fails
			continue
		}
		m.logger.Info("Worker started", zap.String("worker_name", worker.Name()))
	}

	return nil
}

// StopAll gracefully stops all workers
func (m *Manager) StopAll() error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		m.logger.Warn("Workers not running, nothing to stop")
		return nil
	}

	m.isRunning = false
	m.mu.Unlock()

	m.logger.Info("Stopping all workers", zap.Int("count", len(m.workers)))

	if m.cancel != nil {
		m.cancel()
	}

	var errors []error
	for _, worker := range m.workers {
		if err := worker.Stop(); err != nil {
			m.logger.Error("Failed to stop worker",
				zap.String("worker_name", worker.Name()),
				zap.Error(err))
			errors = append(errors, err)
		} else {
			m.logger.Info("Worker stopped", zap.String("worker_name", worker.Name()))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("failed to stop %d workers", len(errors))
	}

	m.logger.Info("All workers stopped successfully")
	return nil
}

// IsRunning returns whether workers are running
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}
