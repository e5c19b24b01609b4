package wire

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/runziggurat/zcash/internal/zerrors"
)

// HeaderLen is the fixed size of a message header on the wire.
const HeaderLen = 24

// MaxMessageLen is the default ceiling on a message body, overridable per Codec.
const MaxMessageLen = 2 * 1024 * 1024

// Header is the fixed-size preamble in front of every message body.
type Header struct {
	Magic    uint32
	Command  string
	Length   uint32
	Checksum uint32
}

// checksum returns the first 4 bytes of SHA-256(SHA-256(payload)), interpreted
// as a little-endian uint32 the way the header field is written.
func checksum(payload []byte) uint32 {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return binary.LittleEndian.Uint32(second[:4])
}

func (h Header) encode() []byte {
	buf := make([]byte, HeaderLen)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	cmd := commandBytes(h.Command)
	copy(buf[4:16], cmd[:])
	binary.LittleEndian.PutUint32(buf[16:20], h.Length)
	binary.LittleEndian.PutUint32(buf[20:24], h.Checksum)
	return buf
}

func decodeHeader(buf []byte, magic uint32) (Header, error) {
	if len(buf) != HeaderLen {
		return Header{}, zerrors.NewBadPayloadError("header: expected %d bytes, got %d", HeaderLen, len(buf))
	}

	gotMagic := binary.LittleEndian.Uint32(buf[0:4])
	if gotMagic != magic {
		return Header{}, zerrors.NewWrongMagicError("header: magic %08x != expected %08x", gotMagic, magic)
	}

	var cmdBytes [12]byte
	copy(cmdBytes[:], buf[4:16])

	return Header{
		Magic:    gotMagic,
		Command:  commandFromBytes(cmdBytes),
		Length:   binary.LittleEndian.Uint32(buf[16:20]),
		Checksum: binary.LittleEndian.Uint32(buf[20:24]),
	}, nil
}
