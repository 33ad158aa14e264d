package wire

import (
	"encoding/binary"
	"net"
)

// Typed rdata codecs for the record types this server serves (§6). Names
// embedded in rdata (NS/CNAME/PTR/MX/SOA) are encoded without compression,
// so decoding them back out of an isolated RData slice (offset 0, no
// pointer bytes present) is exact.

// EncodeA encodes an IPv4 address.
func EncodeA(ip string) ([]byte, error) {
	addr := net.ParseIP(ip).To4()
	if addr == nil {
		return nil, formatErr(0, "invalid A address: "+ip)
	}
	return append([]byte(nil), addr...), nil
}

// DecodeA decodes 4 octets into dotted-quad form.
func DecodeA(rdata []byte) (string, error) {
	if len(rdata) != 4 {
		return "", formatErr(0, "invalid A rdata length")
	}
	return net.IP(rdata).String(), nil
}

// EncodeAAAA encodes an IPv6 address.
func EncodeAAAA(ip string) ([]byte, error) {
	addr := net.ParseIP(ip).To16()
	if addr == nil || net.ParseIP(ip).To4() != nil {
		return nil, formatErr(0, "invalid AAAA address: "+ip)
	}
	return append([]byte(nil), addr...), nil
}

// DecodeAAAA decodes 16 octets into IPv6 string form.
func DecodeAAAA(rdata []byte) (string, error) {
	if len(rdata) != 16 {
		return "", formatErr(0, "invalid AAAA rdata length")
	}
	return net.IP(rdata).String(), nil
}

// EncodeDomainName encodes a bare domain name as rdata (NS/CNAME/PTR).
func EncodeDomainName(name string) ([]byte, error) {
	return encodeName(nil, name)
}

// DecodeDomainName decodes a bare domain name rdata, requiring it to
// fully consume the slice.
func DecodeDomainName(rdata []byte) (string, error) {
	name, next, err := decodeName(rdata, 0)
	if err != nil {
		return "", err
	}
	if next != len(rdata) {
		return "", formatErr(next, "domain name rdata not fully consumed")
	}
	return name, nil
}

// EncodeMX encodes preference + exchange domain.
func EncodeMX(preference uint16, exchange string) ([]byte, error) {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, preference)
	return encodeName(buf, exchange)
}

// MXRData is the decoded form of an MX record.
type MXRData struct {
	Preference uint16
	Exchange   string
}

// DecodeMX decodes preference + exchange domain.
func DecodeMX(rdata []byte) (MXRData, error) {
	if len(rdata) < 3 {
		return MXRData{}, formatErr(0, "invalid MX rdata length")
	}
	pref := binary.BigEndian.Uint16(rdata[0:2])
	exchange, next, err := decodeName(rdata, 2)
	if err != nil {
		return MXRData{}, err
	}
	if next != len(rdata) {
		return MXRData{}, formatErr(next, "MX rdata not fully consumed")
	}
	return MXRData{Preference: pref, Exchange: exchange}, nil
}

// EncodeTXT encodes one or more character-strings, each chunk ≤ 255 bytes.
func EncodeTXT(chunks []string) ([]byte, error) {
	var buf []byte
	for _, c := range chunks {
		if len(c) > 255 {
			return nil, formatErr(0, "TXT chunk too long")
		}
		buf = append(buf, byte(len(c)))
		buf = append(buf, c...)
	}
	return buf, nil
}

// DecodeTXT decodes one or more character-strings.
func DecodeTXT(rdata []byte) ([]string, error) {
	var chunks []string
	pos := 0
	for pos < len(rdata) {
		length := int(rdata[pos])
		pos++
		if pos+length > len(rdata) {
			return nil, formatErr(pos, "truncated TXT chunk")
		}
		chunks = append(chunks, string(rdata[pos:pos+length]))
		pos += length
	}
	return chunks, nil
}

// SOARData is the decoded form of an SOA record.
type SOARData struct {
	MName   string
	RName   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// EncodeSOA encodes mname, rname, and the five 32-bit timer fields.
func EncodeSOA(s SOARData) ([]byte, error) {
	buf, err := encodeName(nil, s.MName)
	if err != nil {
		return nil, err
	}
	buf, err = encodeName(buf, s.RName)
	if err != nil {
		return nil, err
	}
	var timers [20]byte
	binary.BigEndian.PutUint32(timers[0:4], s.Serial)
	binary.BigEndian.PutUint32(timers[4:8], s.Refresh)
	binary.BigEndian.PutUint32(timers[8:12], s.Retry)
	binary.BigEndian.PutUint32(timers[12:16], s.Expire)
	binary.BigEndian.PutUint32(timers[16:20], s.Minimum)
	return append(buf, timers[:]...), nil
}

// DecodeSOA decodes mname, rname, and the five 32-bit timer fields.
func DecodeSOA(rdata []byte) (SOARData, error) {
	mname, offset, err := decodeName(rdata, 0)
	if err != nil {
		return SOARData{}, err
	}
	rname, offset, err := decodeName(rdata, offset)
	if err != nil {
		return SOARData{}, err
	}
	if offset+20 != len(rdata) {
		return SOARData{}, formatErr(offset, "invalid SOA rdata length")
	}
	return SOARData{
		MName:   mname,
		RName:   rname,
		Serial:  binary.BigEndian.Uint32(rdata[offset : offset+4]),
		Refresh: binary.BigEndian.Uint32(rdata[offset+4 : offset+8]),
		Retry:   binary.BigEndian.Uint32(rdata[offset+8 : offset+12]),
		Expire:  binary.BigEndian.Uint32(rdata[offset+12 : offset+16]),
		Minimum: binary.BigEndian.Uint32(rdata[offset+16 : offset+20]),
	}, nil
}
