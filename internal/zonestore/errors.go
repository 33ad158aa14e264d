package zonestore

import "errors"

// ErrNotFound is the distinguished non-error signal for an absent zone
// file (§7 taxonomy: NotFound).
var ErrNotFound = errors.New("zonestore: zone not found")
