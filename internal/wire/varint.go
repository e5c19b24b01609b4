package wire

import (
	"encoding/binary"
	"io"

	"github.com/runziggurat/zcash/internal/zerrors"
)

// writeVarInt appends n using the Zcash/Bitcoin CompactSize encoding:
// 1 byte if < 0xfd, else a 0xfd/0xfe/0xff marker followed by 2/4/8 LE bytes.
func writeVarInt(buf []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(buf, byte(n))
	case n <= 0xffff:
		buf = append(buf, 0xfd)
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], uint16(n))
		return append(buf, tmp[:]...)
	case n <= 0xffffffff:
		buf = append(buf, 0xfe)
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(n))
		return append(buf, tmp[:]...)
	default:
		buf = append(buf, 0xff)
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], n)
		return append(buf, tmp[:]...)
	}
}

// reader wraps a byte slice with a cursor, used while parsing a payload body.
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, zerrors.NewBadPayloadError("unexpected end of payload: need %d bytes, have %d", n, r.remaining())
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) readByte() (byte, error) {
	b, err := r.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) readUint16() (uint16, error) {
	b, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) readUint32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) readUint64() (uint64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) readInt32() (int32, error) {
	v, err := r.readUint32()
	return int32(v), err
}

func (r *reader) readInt64() (int64, error) {
	v, err := r.readUint64()
	return int64(v), err
}

func (r *reader) readVarInt() (uint64, error) {
	first, err := r.readByte()
	if err != nil {
		return 0, err
	}

	switch first {
	case 0xfd:
		v, err := r.readUint16()
		return uint64(v), err
	case 0xfe:
		v, err := r.readUint32()
		return uint64(v), err
	case 0xff:
		return r.readUint64()
	default:
		return uint64(first), nil
	}
}

// readVarStr reads a CompactSize length prefix followed by that many bytes,
// returned as a string (the wire spec allows arbitrary bytes here; every
// use in this protocol is expected to be printable ASCII).
func (r *reader) readVarStr() (string, error) {
	n, err := r.readVarInt()
	if err != nil {
		return "", err
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeVarStr(buf []byte, s string) []byte {
	buf = writeVarInt(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendInt32(buf []byte, v int32) []byte {
	return appendUint32(buf, uint32(v))
}

func appendInt64(buf []byte, v int64) []byte {
	return appendUint64(buf, uint64(v))
}

// ErrShortRead is returned by readFull-style helpers on a truncated stream.
var ErrShortRead = io.ErrUnexpectedEOF
