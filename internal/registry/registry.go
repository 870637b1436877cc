// Package registry maintains the live mapping from tenant identifier to
// an active upstream client.
//
// The registry is single-writer: only the configuration loop mutates it.
// Request tasks read snapshots; an entry handed out by Get stays valid
// for its holder even after the slot is replaced or removed, because
// entries are immutable once published.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arc-self/push-gateway/internal/events"
	"github.com/arc-self/push-gateway/internal/logging"
	"github.com/arc-self/push-gateway/internal/metrics"
)

// maxFailures is the per-tenant build/connection failure budget. Once a
// tenant exceeds it, its entry is evicted and re-created on the next
// configuration replay.
const maxFailures = 10

// defaultBuildBudget bounds a single client rebuild (TLS handshake, key
// parsing).
const defaultBuildBudget = 5 * time.Second

// Builder turns a tenant configuration into a live upstream client.
type Builder[C any] func(app *events.Application) (C, error)

// Entry is an immutable snapshot of one tenant's client.
type Entry[C any] struct {
	Client C
	// Version is the configuration's version token.
	Version string
}

// Registry maps application ids to entries.
type Registry[C any] struct {
	mu       sync.RWMutex
	entries  map[string]*Entry[C]
	failures map[string]int

	build Builder[C]
	// release is invoked when an entry leaves the registry, so adapters
	// can decrement their client gauges.
	release func(C)
	// ping, when set, probes liveness of an existing client whose
	// configuration arrived unchanged.
	ping func(context.Context, C) error

	buildBudget time.Duration
	logger      *zap.Logger
}

// Option configures a Registry.
type Option[C any] func(*Registry[C])

// WithRelease installs the entry-drop hook.
func WithRelease[C any](fn func(C)) Option[C] {
	return func(r *Registry[C]) { r.release = fn }
}

// WithPing installs the liveness probe used for same-version upserts.
func WithPing[C any](fn func(context.Context, C) error) Option[C] {
	return func(r *Registry[C]) { r.ping = fn }
}

// New creates an empty registry building clients with build.
func New[C any](build Builder[C], logger *zap.Logger, opts ...Option[C]) *Registry[C] {
	r := &Registry[C]{
		entries:     make(map[string]*Entry[C]),
		failures:    make(map[string]int),
		build:       build,
		buildBudget: defaultBuildBudget,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the current entry for the application, if any. The entry
// remains usable after a concurrent Upsert or Remove.
func (r *Registry[C]) Get(appID string) (*Entry[C], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[appID]
	return entry, ok
}

// Len returns the number of active tenant entries.
func (r *Registry[C]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Upsert applies a tenant configuration. A configuration with the same
// version token as the stored entry does not rebuild the client unless
// the liveness probe fails. Build failures leave any previous entry in
// place and count against the tenant's failure budget.
func (r *Registry[C]) Upsert(ctx context.Context, app *events.Application) error {
	existing, exists := r.Get(app.ID)

	if exists && existing.Version == app.VersionToken {
		if r.ping == nil {
			return nil
		}

		probeCtx, cancel := context.WithTimeout(ctx, r.buildBudget)
		err := r.ping(probeCtx, existing.Client)
		cancel()
		if err == nil {
			return nil
		}

		r.logger.Warn("liveness probe failed, rebuilding client",
			zap.String("app_id", app.ID),
			zap.Error(err),
		)
	}

	client, err := r.buildWithBudget(ctx, app)
	if err != nil {
		return r.recordFailure(app.ID, err)
	}

	r.mu.Lock()
	old, had := r.entries[app.ID]
	r.entries[app.ID] = &Entry[C]{Client: client, Version: app.VersionToken}
	delete(r.failures, app.ID)
	size := len(r.entries)
	r.mu.Unlock()

	if had && r.release != nil {
		r.release(old.Client)
	}

	metrics.Applications.Set(float64(size))
	return nil
}

// Remove drops the tenant's entry, if present.
func (r *Registry[C]) Remove(appID string) {
	r.mu.Lock()
	entry, ok := r.entries[appID]
	delete(r.entries, appID)
	delete(r.failures, appID)
	size := len(r.entries)
	r.mu.Unlock()

	if !ok {
		return
	}
	if r.release != nil {
		r.release(entry.Client)
	}

	metrics.Applications.Set(float64(size))
	r.logger.Info("deleted consumer",
		zap.String("app_id", appID),
		zap.String("action", string(logging.ActionConsumerDelete)),
	)
}

// buildWithBudget runs the builder under the per-tenant time budget.
// Builders are synchronous, so the budget is enforced by handing the
// result over a channel and abandoning late completions.
func (r *Registry[C]) buildWithBudget(ctx context.Context, app *events.Application) (C, error) {
	type outcome struct {
		client C
		err    error
	}

	ch := make(chan outcome, 1)
	go func() {
		client, err := r.build(app)
		ch <- outcome{client: client, err: err}
	}()

	budgetCtx, cancel := context.WithTimeout(ctx, r.buildBudget)
	defer cancel()

	select {
	case out := <-ch:
		return out.client, out.err
	case <-budgetCtx.Done():
		var zero C
		return zero, fmt.Errorf("client build for %s: %w", app.ID, budgetCtx.Err())
	}
}

// recordFailure counts a build failure and evicts the tenant once the
// budget is exceeded. The previous entry, if any, stays in place until
// eviction.
func (r *Registry[C]) recordFailure(appID string, cause error) error {
	r.mu.Lock()
	r.failures[appID]++
	count := r.failures[appID]
	r.mu.Unlock()

	if count <= maxFailures {
		r.logger.Error("error creating a consumer",
			zap.String("app_id", appID),
			zap.Int("failures", count),
			zap.Error(cause),
		)
		return cause
	}

	r.mu.Lock()
	entry, had := r.entries[appID]
	delete(r.entries, appID)
	delete(r.failures, appID)
	size := len(r.entries)
	r.mu.Unlock()

	if had && r.release != nil {
		r.release(entry.Client)
	}
	metrics.Applications.Set(float64(size))

	r.logger.Error("consumer evicted after repeated failures",
		zap.String("app_id", appID),
		zap.String("action", string(logging.ActionConsumerDelete)),
		zap.Int("failures", count),
		zap.Error(cause),
	)
	return cause
}
