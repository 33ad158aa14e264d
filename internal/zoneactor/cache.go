package zoneactor

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/clusterdns/zoned/internal/eventbus"
	"github.com/clusterdns/zoned/internal/metrics"
	"github.com/clusterdns/zoned/internal/replication"
	"github.com/clusterdns/zoned/internal/worker"
	"github.com/clusterdns/zoned/internal/zonestore"
)

// Replicator is the subset of replication.Replicator the cache depends
// on; satisfied by *replication.Replicator in production and stubbed in
// tests.
type Replicator interface {
	Broadcast(ctx context.Context, action, domain string, zone *zonestore.Zone) error
	Rollback(ctx context.Context, abortedAction, domain string, previous *zonestore.Zone, acked []string)
	RemoteFetch(ctx context.Context, domain string) (zonestore.Zone, error)
}

// Cache is the singleton coordinator of §4.4: a map domain -> active
// holder, serialized through its own single-worker pool so that CRUD
// and activation never race on the index or on disk files.
type Cache struct {
	store      *zonestore.Store
	replicator Replicator
	bus        *eventbus.Bus
	log        *logrus.Logger

	pool *worker.Pool

	holders map[string]*Holder // only ever touched from within pool jobs
}

// New creates a Cache over store, fanning mutations out through
// replicator and announcing lifecycle events on bus.
func New(store *zonestore.Store, replicator Replicator, bus *eventbus.Bus, log *logrus.Logger) *Cache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if bus == nil {
		bus = eventbus.New(16)
	}
	return &Cache{
		store:      store,
		replicator: replicator,
		bus:        bus,
		log:        log,
		pool:       worker.NewPool(worker.Config{Workers: 1, QueueSize: 256}),
		holders:    make(map[string]*Holder),
	}
}

func (c *Cache) do(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.pool.Submit(ctx, worker.JobFunc(fn))
}

// activate implements §4.4's activation algorithm. supplied, when
// non-nil, seeds a freshly started holder instead of reading storage
// (used by create, which has already written the file).
func (c *Cache) activate(ctx context.Context, domain string, supplied *zonestore.Zone) (*Holder, error) {
	if h, ok := c.holders[domain]; ok {
		return h, nil
	}

	content := zonestore.Zone{}
	if supplied != nil {
		content = *supplied
	} else {
		z, err := c.store.Read(domain)
		if err != nil {
			return nil, err
		}
		content = z
	}

	h := NewHolder(domain, c.store)
	if err := h.Activate(ctx, content); err != nil {
		h.Close()
		return nil, err
	}
	c.holders[domain] = h
	metrics.ActiveHolders.Inc()
	c.bus.Publish(ctx, eventbus.TopicZone, ZoneEvent{Domain: domain, Action: "activated"})
	return h, nil
}

func (c *Cache) deactivate(domain string) {
	if h, ok := c.holders[domain]; ok {
		h.Close()
		delete(c.holders, domain)
		metrics.ActiveHolders.Dec()
	}
}

// Fetch activates domain locally; on a local miss it asks the
// replicator to try peers (§4.4 "fetch").
func (c *Cache) Fetch(ctx context.Context, domain string) (zonestore.Zone, error) {
	var result zonestore.Zone
	err := c.do(ctx, func(ctx context.Context) error {
		h, err := c.activate(ctx, domain, nil)
		if err == nil {
			zone, _, gerr := h.Get(ctx)
			if gerr != nil {
				return gerr
			}
			result = zone
			return nil
		}
		if !errors.Is(err, zonestore.ErrNotFound) {
			return err
		}

		zone, rerr := c.replicator.RemoteFetch(ctx, domain)
		if rerr != nil {
			return rerr
		}
		result = zone
		return nil
	})
	return result, err
}

// FetchLocal is Fetch without the remote-peer fallback.
func (c *Cache) FetchLocal(ctx context.Context, domain string) (zonestore.Zone, error) {
	var result zonestore.Zone
	err := c.do(ctx, func(ctx context.Context) error {
		h, err := c.activate(ctx, domain, nil)
		if err != nil {
			return err
		}
		zone, _, gerr := h.Get(ctx)
		if gerr != nil {
			return gerr
		}
		result = zone
		return nil
	})
	return result, err
}

// Create rejects an existing file, defaults version to 1, writes,
// activates, and broadcasts; on quorum failure it rolls back locally
// and on every ack'd peer (§4.4 "create").
func (c *Cache) Create(ctx context.Context, domain string, data zonestore.Zone) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.store.Exists(domain) {
			return conflictErr("zone already exists")
		}

		data.Name = domain
		if data.Version == 0 {
			data.Version = 1
		}

		if err := c.store.Write(domain, data); err != nil {
			return err
		}

		h := NewHolder(domain, c.store)
		if err := h.Activate(ctx, data); err != nil {
			c.store.Delete(domain)
			h.Close()
			return err
		}
		c.holders[domain] = h
		metrics.ActiveHolders.Inc()

		if err := c.replicator.Broadcast(ctx, "create", domain, &data); err != nil {
			var qerr *replication.QuorumError
			if errors.As(err, &qerr) {
				c.store.Delete(domain)
				c.deactivate(domain)
				c.replicator.Rollback(ctx, "create", domain, nil, qerr.Acked)
			}
			return err
		}

		c.bus.Publish(ctx, eventbus.TopicZone, ZoneEvent{Domain: domain, Action: "created"})
		return nil
	})
}

// Update requires an explicit expectedVersion, checks it against the
// held version, bumps it by exactly one, writes via the holder, and
// broadcasts; on quorum failure it restores the previous content and
// rolls back ack'd peers (§4.4 "update").
func (c *Cache) Update(ctx context.Context, domain string, data zonestore.Zone, expectedVersion int) error {
	return c.do(ctx, func(ctx context.Context) error {
		if expectedVersion == 0 {
			return conflictErr("version is required")
		}

		h, ok := c.holders[domain]
		if !ok {
			if !c.store.Exists(domain) {
				return zonestore.ErrNotFound
			}
			var err error
			h, err = c.activate(ctx, domain, nil)
			if err != nil {
				return err
			}
		}

		current, _, err := h.Get(ctx)
		if err != nil {
			return err
		}
		if current.Version == 0 {
			return conflictErr("zone version is missing")
		}
		if current.Version != expectedVersion {
			return conflictErr("version mismatch")
		}

		previous := current
		next := data
		next.Name = domain
		next.Version = expectedVersion + 1

		if err := h.Put(ctx, next); err != nil {
			return err
		}

		if err := c.replicator.Broadcast(ctx, "update", domain, &next); err != nil {
			var qerr *replication.QuorumError
			if errors.As(err, &qerr) {
				h.Put(ctx, previous)
				c.replicator.Rollback(ctx, "update", domain, &previous, qerr.Acked)
			}
			return err
		}

		c.bus.Publish(ctx, eventbus.TopicZone, ZoneEvent{Domain: domain, Action: "updated"})
		return nil
	})
}

// Put is the free-form upsert used as the rollback primitive and for
// bulk replacement (§4.4 "put").
func (c *Cache) Put(ctx context.Context, domain string, data zonestore.Zone) error {
	return c.do(ctx, func(ctx context.Context) error {
		data.Name = domain

		h, existed := c.holders[domain]
		var previous *zonestore.Zone
		if existed {
			cur, _, err := h.Get(ctx)
			if err != nil {
				return err
			}
			previous = &cur
		} else if z, err := c.store.Read(domain); err == nil {
			previous = &z
		}

		if !existed {
			h = NewHolder(domain, c.store)
			c.holders[domain] = h
			metrics.ActiveHolders.Inc()
		}

		if err := h.Put(ctx, data); err != nil {
			if !existed {
				c.deactivate(domain)
			}
			return err
		}

		if err := c.replicator.Broadcast(ctx, "put", domain, &data); err != nil {
			var qerr *replication.QuorumError
			if errors.As(err, &qerr) {
				if previous != nil {
					h.Put(ctx, *previous)
				} else {
					c.store.Delete(domain)
					c.deactivate(domain)
				}
				c.replicator.Rollback(ctx, "put", domain, previous, qerr.Acked)
			}
			return err
		}

		c.bus.Publish(ctx, eventbus.TopicZone, ZoneEvent{Domain: domain, Action: "put"})
		return nil
	})
}

// Delete removes the file and unindexes the holder, broadcasting the
// removal; on quorum failure it restores the previous content locally
// and rolls back ack'd peers (§4.4 "delete").
func (c *Cache) Delete(ctx context.Context, domain string) error {
	return c.do(ctx, func(ctx context.Context) error {
		h, existed := c.holders[domain]
		var previous *zonestore.Zone
		if existed {
			cur, _, err := h.Get(ctx)
			if err != nil {
				return err
			}
			previous = &cur
		}

		err := c.store.Delete(domain)
		if err != nil {
			if !errors.Is(err, zonestore.ErrNotFound) {
				return err
			}
			if !existed {
				return zonestore.ErrNotFound
			}
		}

		if existed {
			c.deactivate(domain)
		}

		if err := c.replicator.Broadcast(ctx, "delete", domain, nil); err != nil {
			var qerr *replication.QuorumError
			if errors.As(err, &qerr) {
				if previous != nil {
					c.store.Write(domain, *previous)
					nh := NewHolder(domain, c.store)
					if aerr := nh.Activate(ctx, *previous); aerr == nil {
						c.holders[domain] = nh
						metrics.ActiveHolders.Inc()
					}
				}
				c.replicator.Rollback(ctx, "delete", domain, previous, qerr.Acked)
			}
			return err
		}

		c.bus.Publish(ctx, eventbus.TopicZone, ZoneEvent{Domain: domain, Action: "deleted"})
		return nil
	})
}

// ApplyChange is the remote-applied path invoked by peers during
// fan-out and rollback (§4.4 "apply_change"). It materializes action
// locally without itself replicating.
func (c *Cache) ApplyChange(ctx context.Context, action, domain string, data *zonestore.Zone) error {
	return c.do(ctx, func(ctx context.Context) error {
		switch action {
		case "delete":
			err := c.store.Delete(domain)
			if err != nil && !errors.Is(err, zonestore.ErrNotFound) {
				return err
			}
			c.deactivate(domain)
			return nil

		case "create", "update", "put":
			if data == nil {
				return conflictErr("apply_change requires a zone payload")
			}
			if err := c.store.Write(domain, *data); err != nil {
				return err
			}
			h, ok := c.holders[domain]
			if !ok {
				h = NewHolder(domain, c.store)
				c.holders[domain] = h
				metrics.ActiveHolders.Inc()
			}
			return h.Activate(ctx, *data)

		default:
			return conflictErr("unknown apply_change action " + action)
		}
	})
}

// Close shuts down every active holder and the cache's own worker.
func (c *Cache) Close() error {
	c.do(context.Background(), func(context.Context) error {
		for domain, h := range c.holders {
			h.Close()
			delete(c.holders, domain)
			metrics.ActiveHolders.Dec()
		}
		return nil
	})
	return c.pool.Close()
}

// ZoneEvent is published on eventbus.TopicZone for every successful
// lifecycle transition.
type ZoneEvent struct {
	Domain string
	Action string
}
