package zonestore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// ValidationError is a schema or type violation (§7 taxonomy). It is
// surfaced verbatim to the HTTP caller as 422 and is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("zonestore: validation: %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// supportedTypes maps the record type tags this server serves to their
// wire codes, via the miekg/dns registry rather than a hand-rolled table.
var supportedTypes = buildSupportedTypes()

func buildSupportedTypes() map[string]uint16 {
	names := []string{"A", "AAAA", "NS", "CNAME", "SOA", "PTR", "MX", "TXT"}
	m := make(map[string]uint16, len(names))
	for _, n := range names {
		code, ok := dns.StringToType[n]
		if !ok {
			panic("zonestore: missing dns type mapping for " + n)
		}
		m[n] = code
	}
	return m
}

func typeCodeSupported(code uint16) bool {
	for _, c := range supportedTypes {
		if c == code {
			return true
		}
	}
	return false
}

// Validate checks zone against §4.2's schema and produces a ResolvedZone
// with normalized names, types, classes, and shape-checked data. It is
// run both on write (Store.Write) and on the startup scan.
func Validate(zone Zone) (*ResolvedZone, error) {
	name := strings.ToLower(strings.TrimSuffix(zone.Name, "."))
	if name == "" {
		return nil, validationErr("name", "must be non-empty")
	}

	version := zone.Version
	if version == 0 {
		version = 1
	}
	if version < 1 {
		return nil, validationErr("version", "must be >= 1")
	}

	resolved := &ResolvedZone{Name: name, Version: version}
	for i, rec := range zone.Records {
		rr, err := validateRecord(name, i, rec)
		if err != nil {
			return nil, err
		}
		resolved.Records = append(resolved.Records, rr)
	}

	return resolved, nil
}

func validateRecord(zoneName string, index int, rec RecordSpec) (ResolvedRecord, error) {
	field := func(name string) string { return fmt.Sprintf("records[%d].%s", index, name) }

	ownerName := ownerNameFor(zoneName, rec.Name)

	typeCode, err := resolveType(rec.Type)
	if err != nil {
		return ResolvedRecord{}, validationErr(field("type"), err.Error())
	}
	if !typeCodeSupported(typeCode) {
		return ResolvedRecord{}, validationErr(field("type"), "unsupported record type")
	}

	classCode, err := resolveClass(rec.Class)
	if err != nil {
		return ResolvedRecord{}, validationErr(field("class"), err.Error())
	}

	ttl := uint32(60)
	if rec.TTL != nil {
		if *rec.TTL < 0 {
			return ResolvedRecord{}, validationErr(field("ttl"), "must be non-negative")
		}
		ttl = uint32(*rec.TTL)
	}

	data, err := validateData(typeCode, rec.Data)
	if err != nil {
		return ResolvedRecord{}, validationErr(field("data"), err.Error())
	}

	return ResolvedRecord{
		OwnerName: ownerName,
		TypeCode:  typeCode,
		ClassCode: classCode,
		TTL:       ttl,
		Data:      data,
	}, nil
}

// ownerNameFor expands "@"/absent to the zone apex and an unqualified
// label to "<label>.<zone>"; a dotted value is taken as-is (§4.6).
func ownerNameFor(zoneName, recordName string) string {
	if recordName == "" || recordName == "@" {
		return zoneName
	}
	if strings.Contains(recordName, ".") {
		return strings.ToLower(strings.TrimSuffix(recordName, "."))
	}
	return strings.ToLower(recordName) + "." + zoneName
}

func resolveType(raw json.RawMessage) (uint16, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("type is required")
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		code, ok := dns.StringToType[strings.ToUpper(asString)]
		if !ok {
			return 0, fmt.Errorf("unknown type tag %q", asString)
		}
		return code, nil
	}
	var asNumber int
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if asNumber < 0 || asNumber > 65535 {
			return 0, fmt.Errorf("type code out of range")
		}
		return uint16(asNumber), nil
	}
	return 0, fmt.Errorf("type must be a string or number")
}

func resolveClass(raw json.RawMessage) (uint16, error) {
	if len(raw) == 0 {
		return dns.ClassINET, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if strings.ToUpper(asString) != "IN" {
			return 0, fmt.Errorf("unknown class tag %q", asString)
		}
		return dns.ClassINET, nil
	}
	var asNumber int
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if asNumber < 0 || asNumber > 65535 {
			return 0, fmt.Errorf("class code out of range")
		}
		return uint16(asNumber), nil
	}
	return 0, fmt.Errorf("class must be \"IN\" or a number")
}

func validateData(typeCode uint16, raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("data is required")
	}

	switch typeCode {
	case dns.TypeA, dns.TypeAAAA, dns.TypeNS, dns.TypeCNAME, dns.TypePTR, dns.TypeTXT:
		return validateStringOrStringList(raw)
	case dns.TypeMX:
		return validateMX(raw)
	case dns.TypeSOA:
		return validateSOA(raw)
	default:
		return nil, fmt.Errorf("unsupported record type")
	}
}

func validateStringOrStringList(raw json.RawMessage) (any, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil, fmt.Errorf("data must be non-empty")
		}
		return single, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return nil, fmt.Errorf("data list must be non-empty")
		}
		for _, s := range list {
			if s == "" {
				return nil, fmt.Errorf("data entries must be non-empty")
			}
		}
		return list, nil
	}

	return nil, fmt.Errorf("data must be a non-empty string or list of strings")
}

type mxJSON struct {
	Preference int    `json:"preference"`
	Exchange   string `json:"exchange"`
}

func validateMX(raw json.RawMessage) (any, error) {
	var single mxJSON
	if err := json.Unmarshal(raw, &single); err == nil && single.Exchange != "" {
		return mxToData(single)
	}

	var list []mxJSON
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return nil, fmt.Errorf("MX data list must be non-empty")
		}
		out := make([]MXData, 0, len(list))
		for _, item := range list {
			d, err := mxToData(item)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
		return out, nil
	}

	return nil, fmt.Errorf("MX data must be {preference, exchange} or a list of such objects")
}

func mxToData(j mxJSON) (MXData, error) {
	if j.Preference < 0 || j.Preference > 65535 {
		return MXData{}, fmt.Errorf("MX preference out of range")
	}
	if j.Exchange == "" {
		return MXData{}, fmt.Errorf("MX exchange must be non-empty")
	}
	return MXData{Preference: uint16(j.Preference), Exchange: j.Exchange}, nil
}

type soaJSON struct {
	MName   string `json:"mname"`
	RName   string `json:"rname"`
	Serial  int64  `json:"serial"`
	Refresh int64  `json:"refresh"`
	Retry   int64  `json:"retry"`
	Expire  int64  `json:"expire"`
	Minimum int64  `json:"minimum"`
}

func validateSOA(raw json.RawMessage) (any, error) {
	var j soaJSON
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("SOA data malformed: %w", err)
	}
	if j.MName == "" || j.RName == "" {
		return nil, fmt.Errorf("SOA mname/rname must be non-empty")
	}
	for name, v := range map[string]int64{
		"serial": j.Serial, "refresh": j.Refresh, "retry": j.Retry,
		"expire": j.Expire, "minimum": j.Minimum,
	} {
		if v < 0 || v > 1<<32-1 {
			return nil, fmt.Errorf("SOA %s out of range", name)
		}
	}
	return SOAData{
		MName:   j.MName,
		RName:   j.RName,
		Serial:  uint32(j.Serial),
		Refresh: uint32(j.Refresh),
		Retry:   uint32(j.Retry),
		Expire:  uint32(j.Expire),
		Minimum: uint32(j.Minimum),
	}, nil
}
