package utils

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const shutdownTimeout = 15 * time.Second

// ShutdownManager cancels the root context on SIGINT/SIGTERM and then runs
// the registered cleanup tasks. Tasks run in reverse registration order, so
// the HTTP server drains before the stores it depends on are closed.
type ShutdownManager struct {
	cancel context.CancelFunc
	tasks  []func(context.Context) error
	mu     sync.Mutex
}

func NewShutdownManager(ctx context.Context) (context.Context, *ShutdownManager) {
	ctx, cancel := context.WithCancel(ctx)
	return ctx, &ShutdownManager{cancel: cancel}
}

func (sm *ShutdownManager) Register(task func(context.Context) error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.tasks = append(sm.tasks, task)
}

func (sm *ShutdownManager) StartListening() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("[SHUTDOWN] Received signal: %v", sig)
		sm.cancel()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		sm.mu.Lock()
		defer sm.mu.Unlock()
		for i := len(sm.tasks) - 1; i >= 0; i-- {
			if err := sm.tasks[i](ctx); err != nil {
				log.Printf("[SHUTDOWN] Cleanup task failed: %v", err)
			}
		}

		log.Println("[SHUTDOWN] Graceful shutdown complete")
		os.Exit(0)
	}()
}
