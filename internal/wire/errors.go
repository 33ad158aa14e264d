// Package wire implements encoding and decoding of DNS messages: header,
// question, resource records, and the EDNS(0) OPT pseudo-RR.
package wire

import "fmt"

// FormatError is returned for any fatal, unrecoverable decode failure:
// truncation, an invalid length, a compression loop, or an unknown label
// type. The message carrying a FormatError gets no reply.
type FormatError struct {
	Offset int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("wire: %s at offset %d", e.Reason, e.Offset)
}

func formatErr(offset int, reason string) error {
	return &FormatError{Offset: offset, Reason: reason}
}
