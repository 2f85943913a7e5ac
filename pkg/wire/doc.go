// Package wire implements the binary encoding of commit records streamed by
// the loom inspector.
//
// Every message travels in a Frame: a one-byte type, a one-byte flags field
// and a big-endian uint16 payload length, followed by the payload. Payloads
// use varints for integers and length-prefixed strings.
//
// A stream opens with a Hello frame carrying the protocol version and the
// runtime identifier, followed by one Commit frame per committed batch:
//
//	data := wire.EncodeCommit(rec)
//	rec, err := wire.DecodeCommit(data)
package wire
