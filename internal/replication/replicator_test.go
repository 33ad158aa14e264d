package replication

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterdns/zoned/internal/zonestore"
)

func ackingPeer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/internal/apply":
			json.NewEncoder(w).Encode(applyResponse{OK: true})
		case "/internal/fetch":
			var req fetchRequest
			json.NewDecoder(r.Body).Decode(&req)
			zone := zonestore.Zone{Name: req.Domain, Version: 1}
			json.NewEncoder(w).Encode(fetchResponse{OK: true, Zone: &zone})
		}
	}))
}

func refusingPeer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
}

func TestBroadcast_QuorumReached(t *testing.T) {
	p1 := ackingPeer(t)
	defer p1.Close()
	p2 := ackingPeer(t)
	defer p2.Close()

	r := New(Config{Peers: []string{p1.URL, p2.URL}, QuorumRatio: 0.5, Timeout: time.Second})

	zone := &zonestore.Zone{Name: "example.test.", Version: 1}
	err := r.Broadcast(context.Background(), "create", "example.test.", zone)
	require.NoError(t, err)
}

func TestBroadcast_QuorumFailed(t *testing.T) {
	p1 := refusingPeer(t)
	defer p1.Close()
	p2 := refusingPeer(t)
	defer p2.Close()

	r := New(Config{Peers: []string{p1.URL, p2.URL}, QuorumRatio: 0.67, Timeout: time.Second})

	zone := &zonestore.Zone{Name: "example.test.", Version: 1}
	err := r.Broadcast(context.Background(), "create", "example.test.", zone)
	require.Error(t, err)

	var qerr *QuorumError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, 3, qerr.Required)
	assert.Empty(t, qerr.Acked) // neither peer acked
}

func TestBroadcast_NoPeersAlwaysQuorum(t *testing.T) {
	r := New(Config{Peers: nil, QuorumRatio: 0.5, Timeout: time.Second})
	err := r.Broadcast(context.Background(), "put", "example.test.", &zonestore.Zone{Name: "example.test."})
	require.NoError(t, err)
}

func TestBroadcast_PartialAckMeetsLowQuorum(t *testing.T) {
	p1 := ackingPeer(t)
	defer p1.Close()
	p2 := refusingPeer(t)
	defer p2.Close()

	r := New(Config{Peers: []string{p1.URL, p2.URL}, QuorumRatio: 0.5, Timeout: time.Second})
	err := r.Broadcast(context.Background(), "update", "example.test.", &zonestore.Zone{Name: "example.test."})
	require.NoError(t, err) // 2 acks (self+p1) out of required ceil(3*0.5)=2
}

func TestRollbackAction(t *testing.T) {
	assert.Equal(t, "delete", rollbackAction("create"))
	assert.Equal(t, "put", rollbackAction("update"))
	assert.Equal(t, "put", rollbackAction("delete"))
	assert.Equal(t, "put", rollbackAction("put"))
}

func TestRollback_SendsCompensatingAction(t *testing.T) {
	received := make(chan applyRequest, 1)
	peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req applyRequest
		json.NewDecoder(r.Body).Decode(&req)
		received <- req
		json.NewEncoder(w).Encode(applyResponse{OK: true})
	}))
	defer peer.Close()

	r := New(Config{Peers: []string{peer.URL}, QuorumRatio: 0.5, Timeout: time.Second})
	previous := &zonestore.Zone{Name: "example.test.", Version: 1}
	r.Rollback(context.Background(), "update", "example.test.", previous, []string{peer.URL})

	select {
	case req := <-received:
		assert.Equal(t, "put", req.Action)
		assert.Equal(t, "example.test.", req.Domain)
		require.NotNil(t, req.Zone)
		assert.Equal(t, 1, req.Zone.Version)
	case <-time.After(time.Second):
		t.Fatal("peer did not receive rollback")
	}
}

func TestRemoteFetch_FirstOKWins(t *testing.T) {
	miss := refusingPeer(t)
	defer miss.Close()
	hit := ackingPeer(t)
	defer hit.Close()

	r := New(Config{Peers: []string{miss.URL, hit.URL}, QuorumRatio: 0.5, Timeout: time.Second})
	zone, err := r.RemoteFetch(context.Background(), "example.test.")
	require.NoError(t, err)
	assert.Equal(t, "example.test.", zone.Name)
}

func TestRemoteFetch_ExhaustsToNotFound(t *testing.T) {
	miss := refusingPeer(t)
	defer miss.Close()

	r := New(Config{Peers: []string{miss.URL}, QuorumRatio: 0.5, Timeout: time.Second})
	_, err := r.RemoteFetch(context.Background(), "example.test.")
	assert.ErrorIs(t, err, zonestore.ErrNotFound)
}
