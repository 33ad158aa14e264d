package wire

import "encoding/binary"

const (
	typeOPT        = 41
	optCodeCookie  = 10
	clientCookieSz = 8
)

// Option is an opaque EDNS(0) option TLV not otherwise recognized by name.
type Option struct {
	Code uint16
	Data []byte
}

// Cookie is a decoded EDNS(0) COOKIE option (RFC 7873 / RFC 9018).
type Cookie struct {
	Client [8]byte
	Server []byte // 0, or 8..32 bytes
}

// OPT is the EDNS(0) pseudo-RR carried in the additional section.
type OPT struct {
	UDPSize       uint16
	ExtendedRcode uint8
	Version       uint8
	DO            bool
	Z             uint16 // 15 bits
	Cookie        *Cookie
	Options       []Option
}

// extractOPT scans the additional section for the (at most one) OPT RR,
// decodes it, and returns the remaining, non-OPT records.
func extractOPT(additional []RR) (*OPT, []RR, error) {
	var opt *OPT
	rest := make([]RR, 0, len(additional))

	for _, rr := range additional {
		if rr.Type != typeOPT {
			rest = append(rest, rr)
			continue
		}
		if opt != nil {
			return nil, nil, formatErr(0, "multiple OPT records")
		}

		o := &OPT{
			UDPSize:       rr.Class,
			ExtendedRcode: uint8(rr.TTL >> 24),
			Version:       uint8(rr.TTL >> 16),
			DO:            (rr.TTL>>15)&0x1 != 0,
			Z:             uint16(rr.TTL & 0x7FFF),
		}

		if err := decodeOPTOptions(o, rr.RData); err != nil {
			return nil, nil, err
		}
		opt = o
	}

	return opt, rest, nil
}

func decodeOPTOptions(o *OPT, rdata []byte) error {
	pos := 0
	for pos < len(rdata) {
		if pos+4 > len(rdata) {
			return formatErr(pos, "truncated EDNS option header")
		}
		code := binary.BigEndian.Uint16(rdata[pos : pos+2])
		length := int(binary.BigEndian.Uint16(rdata[pos+2 : pos+4]))
		pos += 4
		if pos+length > len(rdata) {
			return formatErr(pos, "truncated EDNS option data")
		}
		data := rdata[pos : pos+length]
		pos += length

		if code == optCodeCookie {
			cookie, err := decodeCookie(data)
			if err != nil {
				return err
			}
			o.Cookie = cookie
			continue
		}

		o.Options = append(o.Options, Option{Code: code, Data: append([]byte(nil), data...)})
	}
	return nil
}

func decodeCookie(data []byte) (*Cookie, error) {
	if len(data) < clientCookieSz {
		return nil, formatErr(0, "cookie option too short")
	}
	c := &Cookie{}
	copy(c.Client[:], data[:clientCookieSz])

	if len(data) > clientCookieSz {
		serverLen := len(data) - clientCookieSz
		if serverLen < 8 || serverLen > 32 {
			return nil, formatErr(0, "invalid server cookie length")
		}
		c.Server = append([]byte(nil), data[clientCookieSz:]...)
	}
	return c, nil
}

func encodeOPT(opt OPT) (RR, error) {
	var ttl uint32
	ttl |= uint32(opt.ExtendedRcode) << 24
	ttl |= uint32(opt.Version) << 16
	if opt.DO {
		ttl |= 1 << 15
	}
	ttl |= uint32(opt.Z & 0x7FFF)

	var rdata []byte
	if opt.Cookie != nil {
		data := append([]byte(nil), opt.Cookie.Client[:]...)
		data = append(data, opt.Cookie.Server...)
		rdata = appendOption(rdata, optCodeCookie, data)
	}
	for _, o := range opt.Options {
		rdata = appendOption(rdata, o.Code, o.Data)
	}

	return RR{
		Name:  ".",
		Type:  typeOPT,
		Class: opt.UDPSize,
		TTL:   ttl,
		RData: rdata,
	}, nil
}

func appendOption(rdata []byte, code uint16, data []byte) []byte {
	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[0:2], code)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(data)))
	rdata = append(rdata, hdr[:]...)
	return append(rdata, data...)
}
