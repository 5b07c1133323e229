// Package persistence implements the background PersistenceTask: a
// periodic saver bound to a ReuseAgent only by a weak reference,
// generalized from a ticker-driven GC-loop shape.
package persistence

import (
	"context"
	"log/slog"
	"time"
	"weak"

	"github.com/fastbot/reuse-core/reuseagent"
)

// DefaultInterval is the fixed save interval used when none is given.
const DefaultInterval = 2 * time.Minute

// Task periodically saves an agent's reuse store. It holds the agent
// only through a weak.Pointer — when the agent is otherwise
// unreachable, Value() returns the zero pointer, which is the task's
// only termination signal.
type Task struct {
	agent    weak.Pointer[reuseagent.Agent]
	path     string
	interval time.Duration
	log      *slog.Logger
}

// New builds a Task bound weakly to agent. The caller retains the
// strong reference; dropping it is what eventually stops the task.
func New(agent *reuseagent.Agent, path string, interval time.Duration, log *slog.Logger) *Task {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Task{
		agent:    weak.Make(agent),
		path:     path,
		interval: interval,
		log:      log,
	}
}

// Run drives the save loop until the weak reference can no longer be
// upgraded, or ctx is cancelled. Each iteration upgrades, saves, and
// immediately drops the strong reference before sleeping, so the task
// itself never keeps the agent alive.
func (t *Task) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		agent := t.agent.Value()
		if agent == nil {
			t.log.Info("persistence: agent no longer reachable, stopping")
			return
		}

		if err := agent.SaveReuseModel(t.path); err != nil {
			t.log.Warn("persistence: periodic save failed", "err", err)
		}
		agent = nil // drop the strong reference before sleeping

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
