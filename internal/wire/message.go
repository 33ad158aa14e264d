package wire

import (
	"encoding/binary"
)

const headerSize = 12

// Header is the 12-byte DNS message header (RFC 1035 §4.1.1).
type Header struct {
	ID      uint16
	QR      bool
	Opcode  uint8 // 4 bits, 0..2 valid (query, iquery, status)
	AA      bool
	TC      bool
	RD      bool
	RA      bool
	Z       uint8 // 3 bits
	Rcode   uint8 // 4 bits
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// Question is one entry of the question section.
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

// RR is a resource record with undecoded rdata bytes. Type-specific
// encoding/decoding of RData lives in rr.go.
type RR struct {
	Name  string
	Type  uint16
	Class uint16
	TTL   uint32
	RData []byte
}

// Message is a full decoded DNS message.
type Message struct {
	Header     Header
	Question   []Question
	Answer     []RR
	Authority  []RR
	Additional []RR
	OPT        *OPT
}

// Decode parses a complete DNS message.
func Decode(msg []byte) (*Message, error) {
	if len(msg) < headerSize {
		return nil, formatErr(0, "message too short")
	}

	m := &Message{}
	offset, err := decodeHeader(msg, &m.Header)
	if err != nil {
		return nil, err
	}

	m.Question = make([]Question, 0, m.Header.QDCount)
	for i := 0; i < int(m.Header.QDCount); i++ {
		var q Question
		q, offset, err = decodeQuestion(msg, offset)
		if err != nil {
			return nil, err
		}
		m.Question = append(m.Question, q)
	}

	m.Answer, offset, err = decodeRRSection(msg, offset, int(m.Header.ANCount))
	if err != nil {
		return nil, err
	}
	m.Authority, offset, err = decodeRRSection(msg, offset, int(m.Header.NSCount))
	if err != nil {
		return nil, err
	}
	m.Additional, offset, err = decodeRRSection(msg, offset, int(m.Header.ARCount))
	if err != nil {
		return nil, err
	}

	if offset != len(msg) {
		return nil, formatErr(offset, "trailing bytes after message")
	}

	opt, rest, err := extractOPT(m.Additional)
	if err != nil {
		return nil, err
	}
	m.OPT = opt
	m.Additional = rest

	return m, nil
}

func decodeHeader(msg []byte, h *Header) (int, error) {
	if len(msg) < headerSize {
		return 0, formatErr(0, "message too short for header")
	}

	h.ID = binary.BigEndian.Uint16(msg[0:2])
	flags := binary.BigEndian.Uint16(msg[2:4])
	h.QR = flags&0x8000 != 0
	h.Opcode = uint8((flags >> 11) & 0x0F)
	h.AA = flags&0x0400 != 0
	h.TC = flags&0x0200 != 0
	h.RD = flags&0x0100 != 0
	h.RA = flags&0x0080 != 0
	h.Z = uint8((flags >> 4) & 0x07)
	h.Rcode = uint8(flags & 0x0F)

	if h.Opcode > 2 {
		return 0, formatErr(2, "invalid opcode")
	}

	h.QDCount = binary.BigEndian.Uint16(msg[4:6])
	h.ANCount = binary.BigEndian.Uint16(msg[6:8])
	h.NSCount = binary.BigEndian.Uint16(msg[8:10])
	h.ARCount = binary.BigEndian.Uint16(msg[10:12])

	return headerSize, nil
}

func encodeHeader(buf []byte, h Header) []byte {
	var flags uint16
	if h.QR {
		flags |= 0x8000
	}
	flags |= uint16(h.Opcode&0x0F) << 11
	if h.AA {
		flags |= 0x0400
	}
	if h.TC {
		flags |= 0x0200
	}
	if h.RD {
		flags |= 0x0100
	}
	if h.RA {
		flags |= 0x0080
	}
	flags |= uint16(h.Z&0x07) << 4
	flags |= uint16(h.Rcode & 0x0F)

	var hdr [headerSize]byte
	binary.BigEndian.PutUint16(hdr[0:2], h.ID)
	binary.BigEndian.PutUint16(hdr[2:4], flags)
	binary.BigEndian.PutUint16(hdr[4:6], h.QDCount)
	binary.BigEndian.PutUint16(hdr[6:8], h.ANCount)
	binary.BigEndian.PutUint16(hdr[8:10], h.NSCount)
	binary.BigEndian.PutUint16(hdr[10:12], h.ARCount)
	return append(buf, hdr[:]...)
}

func decodeQuestion(msg []byte, offset int) (Question, int, error) {
	var q Question
	name, offset, err := decodeName(msg, offset)
	if err != nil {
		return q, 0, err
	}
	q.Name = name

	if offset+4 > len(msg) {
		return q, 0, formatErr(offset, "truncated question")
	}
	q.Type = binary.BigEndian.Uint16(msg[offset : offset+2])
	q.Class = binary.BigEndian.Uint16(msg[offset+2 : offset+4])
	return q, offset + 4, nil
}

func encodeQuestion(buf []byte, q Question) ([]byte, error) {
	buf, err := encodeName(buf, q.Name)
	if err != nil {
		return nil, err
	}
	var tc [4]byte
	binary.BigEndian.PutUint16(tc[0:2], q.Type)
	binary.BigEndian.PutUint16(tc[2:4], q.Class)
	return append(buf, tc[:]...), nil
}

func decodeRRSection(msg []byte, offset, count int) ([]RR, int, error) {
	rrs := make([]RR, 0, count)
	for i := 0; i < count; i++ {
		var rr RR
		var err error
		rr, offset, err = decodeRR(msg, offset)
		if err != nil {
			return nil, 0, err
		}
		rrs = append(rrs, rr)
	}
	return rrs, offset, nil
}

func decodeRR(msg []byte, offset int) (RR, int, error) {
	var rr RR
	name, offset, err := decodeName(msg, offset)
	if err != nil {
		return rr, 0, err
	}
	rr.Name = name

	if offset+10 > len(msg) {
		return rr, 0, formatErr(offset, "truncated resource record")
	}
	rr.Type = binary.BigEndian.Uint16(msg[offset : offset+2])
	rr.Class = binary.BigEndian.Uint16(msg[offset+2 : offset+4])
	rr.TTL = binary.BigEndian.Uint32(msg[offset+4 : offset+8])
	rdlength := int(binary.BigEndian.Uint16(msg[offset+8 : offset+10]))
	offset += 10

	if offset+rdlength > len(msg) {
		return rr, 0, formatErr(offset, "truncated rdata")
	}
	rr.RData = append([]byte(nil), msg[offset:offset+rdlength]...)
	offset += rdlength

	return rr, offset, nil
}

func encodeRR(buf []byte, rr RR) ([]byte, error) {
	buf, err := encodeName(buf, rr.Name)
	if err != nil {
		return nil, err
	}
	var fixed [10]byte
	binary.BigEndian.PutUint16(fixed[0:2], rr.Type)
	binary.BigEndian.PutUint16(fixed[2:4], rr.Class)
	binary.BigEndian.PutUint32(fixed[4:8], rr.TTL)
	binary.BigEndian.PutUint16(fixed[8:10], uint16(len(rr.RData)))
	buf = append(buf, fixed[:]...)
	return append(buf, rr.RData...), nil
}

// Encode serializes a full message. No compression pointers are emitted.
func Encode(m *Message) ([]byte, error) {
	h := m.Header
	h.QDCount = uint16(len(m.Question))
	h.ANCount = uint16(len(m.Answer))
	h.NSCount = uint16(len(m.Authority))

	additional := m.Additional
	if m.OPT != nil {
		optRR, err := encodeOPT(*m.OPT)
		if err != nil {
			return nil, err
		}
		additional = append(append([]RR(nil), additional...), optRR)
	}
	h.ARCount = uint16(len(additional))

	buf := make([]byte, 0, 512)
	buf = encodeHeader(buf, h)

	var err error
	for _, q := range m.Question {
		buf, err = encodeQuestion(buf, q)
		if err != nil {
			return nil, err
		}
	}
	for _, rrs := range [][]RR{m.Answer, m.Authority, additional} {
		for _, rr := range rrs {
			buf, err = encodeRR(buf, rr)
			if err != nil {
				return nil, err
			}
		}
	}

	return buf, nil
}
