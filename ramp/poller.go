package ramp

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stellar-ramp/sdk-go/errors"
)

// loopHandle identifies one polling loop so a superseded loop can be
// deregistered only by its owner.
type loopHandle struct {
	cancel context.CancelFunc
}

// Poller runs fixed-interval polling loops keyed by transaction id. At most
// one loop is active per id: starting a new loop for an id cancels any prior
// loop for the same id, so duplicate state transitions cannot occur.
// Cancellation is cooperative; it does not abort in-flight HTTP requests.
type Poller struct {
	mu       sync.Mutex
	active   map[string]*loopHandle
	interval time.Duration
	logger   logrus.FieldLogger
}

// NewPoller creates a poller that ticks at the given interval.
func NewPoller(interval time.Duration, logger logrus.FieldLogger) *Poller {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Poller{
		active:   make(map[string]*loopHandle),
		interval: interval,
		logger:   logger,
	}
}

// Run invokes tick immediately and then once per interval until tick reports
// done, the context ends, or a newer loop for the same id supersedes this
// one. A single failed tick is logged and retried on the next tick; only a
// done result or a stop condition ends the loop.
func (p *Poller) Run(ctx context.Context, id string, tick func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithCancel(ctx)
	handle := &loopHandle{cancel: cancel}

	p.mu.Lock()
	if prev, ok := p.active[id]; ok {
		prev.cancel()
	}
	p.active[id] = handle
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		if p.active[id] == handle {
			delete(p.active, id)
		}
		p.mu.Unlock()
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		done, err := tick(ctx)
		if err != nil {
			p.logger.WithError(err).WithField("transaction_id", id).
				Warn("poll tick failed; retrying on next tick")
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.NewStateError(errors.POLL_TIMEOUT,
				"polling for transaction "+id+" stopped before reaching a terminal state", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Stop cancels the active polling loop for a transaction id, if any.
func (p *Poller) Stop(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if handle, ok := p.active[id]; ok {
		handle.cancel()
		delete(p.active, id)
	}
}
