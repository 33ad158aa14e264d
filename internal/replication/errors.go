// Package replication implements the cluster replicator (§4.5): peer
// discovery, RPC fan-out, quorum evaluation, rollback RPCs, and remote
// fetch. All peer communication is HTTP+JSON against each peer's
// internal apply/fetch routes — there is no generated-stub RPC layer.
package replication

import "fmt"

// QuorumError reports that a broadcast did not reach the required number
// of acks. It carries the list of ack'd peers so the caller can drive
// rollback against exactly those peers (§7 taxonomy: Replication).
type QuorumError struct {
	Required int
	Acked    []string
}

func (e *QuorumError) Error() string {
	return fmt.Sprintf("replication: quorum not met: required %d, acked %d", e.Required, len(e.Acked))
}
