// Package zoneactor implements the zone holder and zone cache mailbox
// actors (§4.3, §4.4): single-writer, on-demand-activated, serialized
// through a bounded-queue worker pool pinned to one worker each.
package zoneactor

import "fmt"

// ConflictError covers "already exists" on create and "version mismatch"
// / "zone version is missing" / "version is required" on update (§7
// taxonomy: Conflict).
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("zoneactor: conflict: %s", e.Reason)
}

func conflictErr(reason string) error {
	return &ConflictError{Reason: reason}
}
