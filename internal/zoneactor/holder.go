package zoneactor

import (
	"context"

	"github.com/clusterdns/zoned/internal/worker"
	"github.com/clusterdns/zoned/internal/zonestore"
)

// Holder is the single in-memory custodian of one zone's content
// (§4.3). It is a mailbox actor: a worker.Pool pinned to exactly one
// worker serializes every get/put, so reads never observe a partially
// applied write.
type Holder struct {
	domain string
	store  *zonestore.Store
	pool   *worker.Pool

	current  zonestore.Zone
	resolved *zonestore.ResolvedZone
}

// NewHolder creates an uninitialized holder for domain. Callers must
// call Activate or Put before the first Get to populate its content.
func NewHolder(domain string, store *zonestore.Store) *Holder {
	return &Holder{
		domain: domain,
		store:  store,
		pool:   worker.NewPool(worker.Config{Workers: 1, QueueSize: 64}),
	}
}

// Activate seeds the holder's in-memory content without touching
// storage (the caller has already persisted or is reading existing
// content).
func (h *Holder) Activate(ctx context.Context, content zonestore.Zone) error {
	return h.pool.Submit(ctx, worker.JobFunc(func(context.Context) error {
		resolved, err := zonestore.Validate(content)
		if err != nil {
			return err
		}
		h.current = content
		h.resolved = resolved
		return nil
	}))
}

// Put persists content via the store's atomic write, then swaps it into
// memory. If the write fails, in-memory content is left unchanged and
// the error is returned unchanged (§4.3).
func (h *Holder) Put(ctx context.Context, content zonestore.Zone) error {
	return h.pool.Submit(ctx, worker.JobFunc(func(context.Context) error {
		resolved, err := zonestore.Validate(content)
		if err != nil {
			return err
		}
		if err := h.store.Write(h.domain, content); err != nil {
			return err
		}
		h.current = content
		h.resolved = resolved
		return nil
	}))
}

// Get returns the current content and its resolved form.
func (h *Holder) Get(ctx context.Context) (zonestore.Zone, *zonestore.ResolvedZone, error) {
	var (
		zone     zonestore.Zone
		resolved *zonestore.ResolvedZone
	)
	err := h.pool.Submit(ctx, worker.JobFunc(func(context.Context) error {
		zone = h.current
		resolved = h.resolved
		return nil
	}))
	return zone, resolved, err
}

// Close shuts down the holder's worker, draining in-flight operations.
func (h *Holder) Close() error {
	return h.pool.Close()
}
