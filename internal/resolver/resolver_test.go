package resolver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterdns/zoned/internal/wire"
	"github.com/clusterdns/zoned/internal/zonestore"
)

type fakeCache struct {
	zones map[string]zonestore.Zone
}

func (f *fakeCache) Fetch(ctx context.Context, domain string) (zonestore.Zone, error) {
	z, ok := f.zones[domain]
	if !ok {
		return zonestore.Zone{}, zonestore.ErrNotFound
	}
	return z, nil
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func question(name string, qtype uint16) wire.Question {
	return wire.Question{Name: name, Type: qtype, Class: dns.ClassINET}
}

// TestResolve_A covers scenario S1: a zone with an A record answers
// a matching query with aa=1, rcode=0.
func TestResolve_A(t *testing.T) {
	ttl := 300
	cache := &fakeCache{zones: map[string]zonestore.Zone{
		"hello.test": {
			Name:    "hello.test",
			Version: 1,
			Records: []zonestore.RecordSpec{
				{Type: raw(t, "A"), Data: raw(t, "1.2.3.4"), TTL: &ttl},
			},
		},
	}}

	res := New(cache)
	req := &wire.Message{
		Header:   wire.Header{ID: 0x1234, RD: false},
		Question: []wire.Question{question("hello.test.", dns.TypeA)},
	}

	resp := res.Resolve(context.Background(), req)

	assert.Equal(t, uint8(dns.RcodeSuccess), resp.Header.Rcode)
	assert.True(t, resp.Header.AA)
	require.Len(t, resp.Answer, 1)
	assert.Equal(t, "hello.test.", resp.Answer[0].Name)
	assert.Equal(t, uint16(dns.TypeA), resp.Answer[0].Type)
	assert.Equal(t, uint32(300), resp.Answer[0].TTL)
	assert.Equal(t, []byte{1, 2, 3, 4}, resp.Answer[0].RData)
}

// TestResolve_NXDOMAIN covers scenario S2: an empty zone set yields
// rcode=3 and no answers.
func TestResolve_NXDOMAIN(t *testing.T) {
	res := New(&fakeCache{zones: map[string]zonestore.Zone{}})
	req := &wire.Message{
		Header:   wire.Header{ID: 1},
		Question: []wire.Question{question("example.org.", dns.TypeA)},
	}

	resp := res.Resolve(context.Background(), req)

	assert.Equal(t, uint8(dns.RcodeNameError), resp.Header.Rcode)
	assert.Empty(t, resp.Answer)
}

// TestResolve_SuffixMatch covers invariant 9: a query for a subdomain
// resolves against the owning parent zone.
func TestResolve_SuffixMatch(t *testing.T) {
	cache := &fakeCache{zones: map[string]zonestore.Zone{
		"hello.test": {
			Name:    "hello.test",
			Version: 1,
			Records: []zonestore.RecordSpec{
				{Name: "a.b.hello.test", Type: raw(t, "A"), Data: raw(t, "9.9.9.9")},
			},
		},
	}}

	res := New(cache)
	req := &wire.Message{
		Header:   wire.Header{ID: 2},
		Question: []wire.Question{question("a.b.hello.test.", dns.TypeA)},
	}

	resp := res.Resolve(context.Background(), req)

	assert.Equal(t, uint8(dns.RcodeSuccess), resp.Header.Rcode)
	require.Len(t, resp.Answer, 1)
	assert.Equal(t, "a.b.hello.test.", resp.Answer[0].Name)
}

// TestResolve_NameExistsTypeDoesNot covers: zone owns the name but has
// no record of the requested type -> rcode=0, empty answers.
func TestResolve_NameExistsTypeDoesNot(t *testing.T) {
	cache := &fakeCache{zones: map[string]zonestore.Zone{
		"hello.test": {
			Name:    "hello.test",
			Version: 1,
			Records: []zonestore.RecordSpec{
				{Type: raw(t, "A"), Data: raw(t, "1.1.1.1")},
			},
		},
	}}

	res := New(cache)
	req := &wire.Message{
		Header:   wire.Header{ID: 3},
		Question: []wire.Question{question("hello.test.", dns.TypeMX)},
	}

	resp := res.Resolve(context.Background(), req)

	assert.Equal(t, uint8(dns.RcodeSuccess), resp.Header.Rcode)
	assert.Empty(t, resp.Answer)
}

// TestResolve_OPTPassthrough checks the request's OPT (including DNS
// Cookie) is copied unchanged into the response.
func TestResolve_OPTPassthrough(t *testing.T) {
	res := New(&fakeCache{zones: map[string]zonestore.Zone{}})
	opt := &wire.OPT{UDPSize: 4096, Cookie: &wire.Cookie{Client: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}}
	req := &wire.Message{
		Header:   wire.Header{ID: 4},
		Question: []wire.Question{question("example.org.", dns.TypeA)},
		OPT:      opt,
	}

	resp := res.Resolve(context.Background(), req)

	require.NotNil(t, resp.OPT)
	assert.Equal(t, opt.UDPSize, resp.OPT.UDPSize)
	assert.Equal(t, opt.Cookie, resp.OPT.Cookie)
}

func TestResolve_ANYMatchesEveryType(t *testing.T) {
	cache := &fakeCache{zones: map[string]zonestore.Zone{
		"multi.test": {
			Name:    "multi.test",
			Version: 1,
			Records: []zonestore.RecordSpec{
				{Type: raw(t, "A"), Data: raw(t, "1.1.1.1")},
				{Type: raw(t, "MX"), Data: raw(t, map[string]any{"preference": 10, "exchange": "mail.multi.test"})},
			},
		},
	}}

	res := New(cache)
	req := &wire.Message{
		Header:   wire.Header{ID: 5},
		Question: []wire.Question{question("multi.test.", dns.TypeANY)},
	}

	resp := res.Resolve(context.Background(), req)
	assert.Len(t, resp.Answer, 2)
}
