// Package zonestore implements content-addressed, sharded JSON storage
// for zones: path layout, atomic writes, schema validation, and the
// startup scan over the zones directory.
package zonestore

import "encoding/json"

// Zone is the on-disk and wire JSON representation of a zone (§3).
type Zone struct {
	Name    string       `json:"name"`
	Version int          `json:"version"`
	Records []RecordSpec `json:"records"`
}

// RecordSpec is one record entry. Type and Class accept either the
// string tag or the numeric wire code, per §3; Data is type-specific and
// is interpreted during validation (§4.2).
type RecordSpec struct {
	Name  string          `json:"name,omitempty"`
	Type  json.RawMessage `json:"type"`
	Class json.RawMessage `json:"class,omitempty"`
	TTL   *int            `json:"ttl,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// ResolvedRecord is a RecordSpec after validation: type/class normalized
// to numeric codes, name expanded to a fully-qualified owner name, ttl
// defaulted, and data shape-checked per type.
type ResolvedRecord struct {
	OwnerName string
	TypeCode  uint16
	ClassCode uint16
	TTL       uint32
	Data      any // string, []string, MXData, []MXData, or SOAData
}

// MXData is the validated shape of MX record data.
type MXData struct {
	Preference uint16
	Exchange   string
}

// SOAData is the validated shape of SOA record data.
type SOAData struct {
	MName   string
	RName   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// ResolvedZone is a Zone after full validation, ready for the resolver
// and the zone holder to consume without re-parsing JSON.
type ResolvedZone struct {
	Name    string
	Version int
	Records []ResolvedRecord
}
