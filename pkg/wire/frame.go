package wire

import (
	"errors"
	"fmt"
	"io"
)

const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 4

	// MaxPayloadSize is the largest payload a frame can carry.
	MaxPayloadSize = 65535
)

// FrameType identifies the message carried by a frame.
type FrameType uint8

const (
	FrameHello  FrameType = 0x00 // Stream setup
	FrameCommit FrameType = 0x01 // One committed patch batch
	FrameError  FrameType = 0x02 // Server-side failure, payload is a message
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameHello:
		return "Hello"
	case FrameCommit:
		return "Commit"
	case FrameError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(ft))
	}
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("wire: frame payload too large")
	ErrInvalidFrameType = errors.New("wire: invalid frame type")
)

// Frame is a typed, length-prefixed payload.
//
//	+------------+-----------+-------------------------+
//	| Type (1)   | Flags (1) | Payload length (2, BE)  |
//	+------------+-----------+-------------------------+
//	| Payload                                          |
//	+--------------------------------------------------+
type Frame struct {
	Type    FrameType
	Flags   uint8
	Payload []byte
}

// Encode returns the frame with its header.
func (f *Frame) Encode() ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	e := NewEncoder()
	e.WriteByte(byte(f.Type))
	e.WriteByte(f.Flags)
	e.WriteUint16(uint16(len(f.Payload)))
	e.WriteBytes(f.Payload)
	return e.Bytes(), nil
}

// DecodeFrame decodes one frame. Trailing bytes are an error.
func DecodeFrame(data []byte) (*Frame, error) {
	d := NewDecoder(data)
	t, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if FrameType(t) > FrameError {
		return nil, ErrInvalidFrameType
	}
	flags, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	n, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	payload, err := d.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	if !d.EOF() {
		return nil, fmt.Errorf("wire: %d trailing bytes after frame", d.Remaining())
	}
	return &Frame{
		Type:    FrameType(t),
		Flags:   flags,
		Payload: append([]byte(nil), payload...),
	}, nil
}

// WriteFrame writes f to w.
func WriteFrame(w io.Writer, f *Frame) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadFrame reads one frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	if FrameType(header[0]) > FrameError {
		return nil, ErrInvalidFrameType
	}
	n := int(header[2])<<8 | int(header[3])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return &Frame{Type: FrameType(header[0]), Flags: header[1], Payload: payload}, nil
}
