// Package resolver implements the authoritative answering algorithm of
// §4.6: suffix-walk zone lookup, record filtering by owner name and
// type, and rdata encoding through internal/wire.
package resolver

import (
	"context"
	"strings"

	"github.com/miekg/dns"

	"github.com/clusterdns/zoned/internal/wire"
	"github.com/clusterdns/zoned/internal/zonestore"
)

// Cache is the subset of zoneactor.Cache the resolver depends on.
type Cache interface {
	Fetch(ctx context.Context, domain string) (zonestore.Zone, error)
}

// Resolver answers parsed requests against a zone cache.
type Resolver struct {
	cache Cache
}

// New creates a Resolver backed by cache.
func New(cache Cache) *Resolver {
	return &Resolver{cache: cache}
}

// Resolve implements the §4.6 answering algorithm: for each question it
// walks the suffix list to find an owning zone, filters matching
// records, encodes their rdata, and assembles the reply header.
func (r *Resolver) Resolve(ctx context.Context, req *wire.Message) *wire.Message {
	resp := &wire.Message{
		Header: wire.Header{
			ID:     req.Header.ID,
			QR:     true,
			Opcode: req.Header.Opcode,
			AA:     true,
			RD:     req.Header.RD,
		},
		Question: req.Question,
		OPT:      req.OPT,
	}

	anyOwned := false
	for _, q := range req.Question {
		owned, answers := r.answerQuestion(ctx, q)
		if owned {
			anyOwned = true
		}
		resp.Answer = append(resp.Answer, answers...)
	}

	if anyOwned {
		resp.Header.Rcode = dns.RcodeSuccess
	} else {
		resp.Header.Rcode = dns.RcodeNameError
	}

	return resp
}

// answerQuestion returns whether some zone claimed ownership of q.Name
// and the answer RRs produced for it (possibly none, if the zone owns
// the name but has no record of the requested type).
func (r *Resolver) answerQuestion(ctx context.Context, q wire.Question) (owned bool, answers []wire.RR) {
	qname := strings.ToLower(strings.TrimSuffix(q.Name, "."))

	for _, suffix := range suffixes(qname) {
		zone, err := r.cache.Fetch(ctx, suffix)
		if err != nil {
			continue
		}

		resolved, err := zonestore.Validate(zone)
		if err != nil {
			// A zone that fails its own invariant serves no records;
			// it is still the owning zone for NXDOMAIN purposes.
			return true, nil
		}

		for _, rec := range resolved.Records {
			if rec.OwnerName != qname {
				continue
			}
			if q.Type != dns.TypeANY && rec.TypeCode != q.Type {
				continue
			}
			rdatas, err := encodeRData(rec.TypeCode, rec.Data)
			if err != nil {
				continue
			}
			for _, rdata := range rdatas {
				answers = append(answers, wire.RR{
					Name:  qname + ".",
					Type:  rec.TypeCode,
					Class: rec.ClassCode,
					TTL:   rec.TTL,
					RData: rdata,
				})
			}
		}
		return true, answers
	}

	return false, nil
}

// suffixes generates [qname, drop_first_label(qname), ..., top-label].
func suffixes(qname string) []string {
	labels := strings.Split(qname, ".")
	out := make([]string, len(labels))
	for i := range labels {
		out[i] = strings.Join(labels[i:], ".")
	}
	return out
}

// encodeRData dispatches to the typed wire codec for typeCode, expanding
// list-valued data into one rdata entry per list item.
func encodeRData(typeCode uint16, data any) ([][]byte, error) {
	switch typeCode {
	case dns.TypeA:
		return encodeEach(data, wire.EncodeA)
	case dns.TypeAAAA:
		return encodeEach(data, wire.EncodeAAAA)
	case dns.TypeNS, dns.TypeCNAME, dns.TypePTR:
		return encodeEach(data, wire.EncodeDomainName)
	case dns.TypeTXT:
		return encodeEach(data, func(s string) ([]byte, error) {
			return wire.EncodeTXT([]string{s})
		})
	case dns.TypeMX:
		return encodeMX(data)
	case dns.TypeSOA:
		soa, ok := data.(zonestore.SOAData)
		if !ok {
			return nil, &wire.FormatError{Reason: "SOA data has unexpected shape"}
		}
		rdata, err := wire.EncodeSOA(wire.SOARData{
			MName:   soa.MName,
			RName:   soa.RName,
			Serial:  soa.Serial,
			Refresh: soa.Refresh,
			Retry:   soa.Retry,
			Expire:  soa.Expire,
			Minimum: soa.Minimum,
		})
		if err != nil {
			return nil, err
		}
		return [][]byte{rdata}, nil
	default:
		return nil, &wire.FormatError{Reason: "unsupported record type"}
	}
}

func encodeEach(data any, enc func(string) ([]byte, error)) ([][]byte, error) {
	values, ok := stringValues(data)
	if !ok {
		return nil, &wire.FormatError{Reason: "record data has unexpected shape"}
	}
	out := make([][]byte, 0, len(values))
	for _, v := range values {
		rdata, err := enc(v)
		if err != nil {
			return nil, err
		}
		out = append(out, rdata)
	}
	return out, nil
}

func stringValues(data any) ([]string, bool) {
	switch v := data.(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	default:
		return nil, false
	}
}

func encodeMX(data any) ([][]byte, error) {
	switch v := data.(type) {
	case zonestore.MXData:
		rdata, err := wire.EncodeMX(v.Preference, v.Exchange)
		if err != nil {
			return nil, err
		}
		return [][]byte{rdata}, nil
	case []zonestore.MXData:
		out := make([][]byte, 0, len(v))
		for _, mx := range v {
			rdata, err := wire.EncodeMX(mx.Preference, mx.Exchange)
			if err != nil {
				return nil, err
			}
			out = append(out, rdata)
		}
		return out, nil
	default:
		return nil, &wire.FormatError{Reason: "MX data has unexpected shape"}
	}
}
