package wire

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	lerr "github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/loom"
)

// Version is the protocol version written in Hello frames.
const Version = 1

// Hello opens a stream.
type Hello struct {
	Version uint8
	Runtime uuid.UUID
	Commits uint64
}

// EncodeHello encodes h as a Hello frame.
func EncodeHello(h Hello) []byte {
	e := NewEncoder()
	e.WriteByte(h.Version)
	e.WriteBytes(h.Runtime[:])
	e.WriteUvarint(h.Commits)
	return mustFrame(FrameHello, e.Bytes())
}

// DecodeHello decodes a Hello frame and checks its version.
func DecodeHello(data []byte) (Hello, error) {
	var h Hello
	d, err := payload(data, FrameHello)
	if err != nil {
		return h, err
	}
	if h.Version, err = d.ReadByte(); err != nil {
		return h, invalid(err)
	}
	if h.Version != Version {
		return h, lerr.New("L301").WithDetail("got version " + strconv.Itoa(int(h.Version)))
	}
	if h.Runtime, err = readUUID(d); err != nil {
		return h, invalid(err)
	}
	if h.Commits, err = d.ReadUvarint(); err != nil {
		return h, invalid(err)
	}
	return h, nil
}

// EncodeCommit encodes rec as a Commit frame.
func EncodeCommit(rec loom.CommitRecord) []byte {
	e := NewEncoder()
	AppendCommit(e, rec)
	return mustFrame(FrameCommit, e.Bytes())
}

// AppendCommit writes the commit payload without a frame header.
//
// Layout: runtime uuid (16), root uuid (16), seq, instance (uvarint), name
// (string), created, removed, replaced, text, updated (uvarint), unix nanos
// (svarint).
func AppendCommit(e *Encoder, rec loom.CommitRecord) {
	e.WriteBytes(rec.Runtime[:])
	e.WriteBytes(rec.Root[:])
	e.WriteUvarint(rec.Seq)
	e.WriteUvarint(rec.Instance)
	e.WriteString(rec.Name)
	for _, n := range []int{rec.Created, rec.Removed, rec.Replaced, rec.Text, rec.Updated} {
		e.WriteUvarint(uint64(n))
	}
	var at int64
	if !rec.At.IsZero() {
		at = rec.At.UnixNano()
	}
	e.WriteSvarint(at)
}

// DecodeCommit decodes a Commit frame.
func DecodeCommit(data []byte) (loom.CommitRecord, error) {
	d, err := payload(data, FrameCommit)
	if err != nil {
		return loom.CommitRecord{}, err
	}
	rec, err := ReadCommit(d)
	if err != nil {
		return rec, err
	}
	if !d.EOF() {
		return rec, lerr.New("L300").WithDetail("trailing bytes after commit record")
	}
	return rec, nil
}

// ReadCommit reads a commit payload written by AppendCommit.
func ReadCommit(d *Decoder) (loom.CommitRecord, error) {
	var rec loom.CommitRecord
	var err error
	if rec.Runtime, err = readUUID(d); err != nil {
		return rec, invalid(err)
	}
	if rec.Root, err = readUUID(d); err != nil {
		return rec, invalid(err)
	}
	if rec.Seq, err = d.ReadUvarint(); err != nil {
		return rec, invalid(err)
	}
	if rec.Instance, err = d.ReadUvarint(); err != nil {
		return rec, invalid(err)
	}
	if rec.Name, err = d.ReadString(); err != nil {
		return rec, invalid(err)
	}
	for _, n := range []*int{&rec.Created, &rec.Removed, &rec.Replaced, &rec.Text, &rec.Updated} {
		v, err := d.ReadUvarint()
		if err != nil {
			return rec, invalid(err)
		}
		*n = int(v)
	}
	at, err := d.ReadSvarint()
	if err != nil {
		return rec, invalid(err)
	}
	if at != 0 {
		rec.At = time.Unix(0, at).UTC()
	}
	return rec, nil
}

// EncodeError encodes msg as an Error frame.
func EncodeError(msg string) []byte {
	if len(msg) > MaxStringLen {
		msg = msg[:MaxStringLen]
	}
	e := NewEncoder()
	e.WriteString(msg)
	return mustFrame(FrameError, e.Bytes())
}

// DecodeError decodes an Error frame.
func DecodeError(data []byte) (string, error) {
	d, err := payload(data, FrameError)
	if err != nil {
		return "", err
	}
	msg, err := d.ReadString()
	if err != nil {
		return "", invalid(err)
	}
	return msg, nil
}

func payload(data []byte, want FrameType) (*Decoder, error) {
	f, err := DecodeFrame(data)
	if err != nil {
		return nil, invalid(err)
	}
	if f.Type != want {
		return nil, lerr.New("L300").WithDetail("expected " + want.String() + " frame, got " + f.Type.String())
	}
	return NewDecoder(f.Payload), nil
}

// mustFrame wraps a payload the encoders built. Commit and hello payloads
// are far below MaxPayloadSize.
func mustFrame(t FrameType, p []byte) []byte {
	f := &Frame{Type: t, Payload: p}
	data, err := f.Encode()
	if err != nil {
		panic(err)
	}
	return data
}

func readUUID(d *Decoder) (uuid.UUID, error) {
	b, err := d.ReadBytes(16)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.FromBytes(b)
}

func invalid(err error) error {
	return lerr.New("L300").Wrap(err)
}
