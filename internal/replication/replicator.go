package replication

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clusterdns/zoned/internal/metrics"
	"github.com/clusterdns/zoned/internal/zonestore"
)

// Config configures a Replicator.
type Config struct {
	Peers         []string // base URLs of peer nodes, e.g. "http://10.0.0.2:8080"
	QuorumRatio   float64
	Timeout       time.Duration
	Log           *logrus.Logger
}

// Replicator fans a change out to peers, evaluates quorum, and drives
// best-effort rollback RPCs on acknowledging peers (§4.5).
type Replicator struct {
	peers       []string
	quorumRatio float64
	timeout     time.Duration
	client      *http.Client
	log         *logrus.Logger
}

// New creates a Replicator from cfg.
func New(cfg Config) *Replicator {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Replicator{
		peers:       cfg.Peers,
		quorumRatio: cfg.QuorumRatio,
		timeout:     cfg.Timeout,
		client:      &http.Client{Timeout: cfg.Timeout},
		log:         log,
	}
}

// Broadcast fans (action, domain, zone) out to every peer's apply route,
// counts acks (self + responding peers), and returns a *QuorumError if
// the required threshold is not met (§4.5 steps 1-5).
func (r *Replicator) Broadcast(ctx context.Context, action, domain string, zone *zonestore.Zone) error {
	acked := r.fanOut(ctx, action, domain, zone)

	total := len(r.peers) + 1
	required := int(math.Ceil(float64(total) * r.quorumRatio))
	if required < 1 {
		required = 1
	}

	acks := 1 + len(acked) // self + responding peers
	if acks >= required {
		metrics.ReplicationAcks.WithLabelValues(action, "quorum").Inc()
		return nil
	}
	metrics.ReplicationAcks.WithLabelValues(action, "quorum_failed").Inc()
	return &QuorumError{Required: required, Acked: acked}
}

func (r *Replicator) fanOut(ctx context.Context, action, domain string, zone *zonestore.Zone) []string {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		acked []string
	)

	for _, peer := range r.peers {
		wg.Add(1)
		go func(peer string) {
			defer wg.Done()

			pctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			var resp applyResponse
			err := postJSON(pctx, r.client, peer+"/internal/apply", applyRequest{
				Action: action, Domain: domain, Zone: zone,
			}, &resp)

			if err != nil || !resp.OK {
				r.log.WithFields(logrus.Fields{"peer": peer, "action": action, "domain": domain}).
					WithError(err).Debug("replication: peer did not ack")
				return
			}

			mu.Lock()
			acked = append(acked, peer)
			mu.Unlock()
		}(peer)
	}

	wg.Wait()
	return acked
}

// rollbackAction maps an aborted action to its compensating action (§4.5).
func rollbackAction(aborted string) string {
	switch aborted {
	case "create":
		return "delete"
	default: // delete, update, put
		return "put"
	}
}

// Rollback sends the compensating action to every peer in acked,
// carrying previous as the payload for a put rollback. Results are
// ignored: the local rollback must already have been applied by the
// cache before calling this.
func (r *Replicator) Rollback(ctx context.Context, abortedAction, domain string, previous *zonestore.Zone, acked []string) {
	action := rollbackAction(abortedAction)

	var wg sync.WaitGroup
	for _, peer := range acked {
		wg.Add(1)
		go func(peer string) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			var resp applyResponse
			_ = postJSON(pctx, r.client, peer+"/internal/apply", applyRequest{
				Action: action, Domain: domain, Zone: previous,
			}, &resp)
		}(peer)
	}
	wg.Wait()
}

// RemoteFetch probes peers in order; the first {ok, zone} wins. A
// not_found/error/transport failure on a peer advances to the next one;
// exhausting the list yields ErrNotFound.
func (r *Replicator) RemoteFetch(ctx context.Context, domain string) (zonestore.Zone, error) {
	for _, peer := range r.peers {
		pctx, cancel := context.WithTimeout(ctx, r.timeout)
		var resp fetchResponse
		err := postJSON(pctx, r.client, peer+"/internal/fetch", fetchRequest{Domain: domain}, &resp)
		cancel()

		if err != nil || !resp.OK || resp.Zone == nil {
			continue
		}
		return *resp.Zone, nil
	}
	return zonestore.Zone{}, zonestore.ErrNotFound
}
