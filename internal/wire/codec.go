// Package wire implements the Zcash peer-to-peer wire format: header
// framing, the CompactSize varint encoding, and every message payload the
// synthetic peer and crawler exchange with a node under test.
package wire

import (
	"io"

	"github.com/runziggurat/zcash/internal/zerrors"
)

// Codec encodes and decodes messages for one configured network. A Codec is
// stateless and safe for concurrent use; every connection shares one.
type Codec struct {
	Magic         uint32
	MaxMessageLen int
}

// NewCodec returns a Codec bounding message bodies to maxMessageLen bytes;
// a zero value selects MaxMessageLen.
func NewCodec(magic uint32, maxMessageLen int) *Codec {
	if maxMessageLen <= 0 {
		maxMessageLen = MaxMessageLen
	}
	return &Codec{Magic: magic, MaxMessageLen: maxMessageLen}
}

// Encode serialises m into a full wire frame: header followed by payload.
func (c *Codec) Encode(m Message) ([]byte, error) {
	payload, err := encodePayload(m)
	if err != nil {
		return nil, err
	}

	h := Header{
		Magic:    c.Magic,
		Command:  m.Command,
		Length:   uint32(len(payload)),
		Checksum: checksum(payload),
	}

	out := h.encode()
	return append(out, payload...), nil
}

// EncodeRaw serialises a RawMessage using its literal header fields,
// bypassing every invariant Encode would otherwise enforce. Used by fuzz
// harnesses to construct malformed frames on purpose.
func (c *Codec) EncodeRaw(m RawMessage) []byte {
	out := m.Header.encode()
	return append(out, m.Payload...)
}

func encodePayload(m Message) ([]byte, error) {
	switch m.Command {
	case CmdVersion:
		if m.Version == nil {
			return nil, zerrors.NewBadPayloadError("version: nil payload")
		}
		return encodeVersion(*m.Version), nil
	case CmdVerack, CmdGetAddr, CmdMempool, CmdFilterClear:
		return m.Raw, nil
	case CmdPing, CmdPong:
		return appendUint64(nil, m.Nonce), nil
	case CmdAddr:
		if m.Addr == nil {
			return nil, zerrors.NewBadPayloadError("addr: nil payload")
		}
		return encodeAddr(*m.Addr), nil
	case CmdReject:
		if m.Reject == nil {
			return nil, zerrors.NewBadPayloadError("reject: nil payload")
		}
		return encodeReject(*m.Reject), nil
	case CmdInv, CmdGetData, CmdNotFound:
		if m.Inv == nil {
			return nil, zerrors.NewBadPayloadError("%s: nil payload", m.Command)
		}
		return encodeInv(*m.Inv), nil
	case CmdFilterAdd:
		if m.FilterAdd == nil {
			return nil, zerrors.NewBadPayloadError("filteradd: nil payload")
		}
		return encodeFilterAdd(*m.FilterAdd), nil
	case CmdFilterLoad:
		if m.FilterLoad == nil {
			return nil, zerrors.NewBadPayloadError("filterload: nil payload")
		}
		return encodeFilterLoad(*m.FilterLoad), nil
	case CmdGetHeaders, CmdHeaders, CmdGetBlocks, CmdBlock, CmdTx:
		return m.Raw, nil
	default:
		return nil, zerrors.NewUnknownCommandError("encode: unknown command %q", m.Command)
	}
}

// DecodeHeader reads and validates the fixed 24-byte header from r.
func (c *Codec) DecodeHeader(r io.Reader) (Header, error) {
	buf := make([]byte, HeaderLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, wrapReadErr(err)
	}
	return decodeHeader(buf, c.Magic)
}

// DecodeBody reads and parses h's payload from r. A checksum mismatch is
// returned as a *zerrors.Error with code ERR_BAD_CHECKSUM but the payload
// bytes are still returned, since callers must decide whether to drop the
// frame or trust it — per observed node behaviour, checksum failures are
// not treated as fatal framing errors.
func (c *Codec) DecodeBody(r io.Reader, h Header) (Message, error) {
	if int(h.Length) > c.MaxMessageLen {
		return Message{}, zerrors.NewOversizeError("body: %d bytes exceeds max %d", h.Length, c.MaxMessageLen)
	}

	buf := make([]byte, h.Length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Message{}, wrapReadErr(err)
	}

	var checksumErr error
	if checksum(buf) != h.Checksum {
		checksumErr = zerrors.NewBadChecksumError("body: checksum mismatch for command %q", h.Command)
	}

	msg, err := decodePayload(h.Command, buf)
	if err != nil {
		if checksumErr != nil {
			return Message{}, checksumErr
		}
		return Message{}, err
	}

	return msg, checksumErr
}

func decodePayload(command string, buf []byte) (Message, error) {
	m := Message{Command: command}
	r := newReader(buf)

	switch command {
	case CmdVersion:
		v, err := decodeVersion(r)
		if err != nil {
			return m, err
		}
		m.Version = &v
	case CmdVerack, CmdGetAddr, CmdMempool, CmdFilterClear:
		m.Raw = buf
	case CmdPing, CmdPong:
		nonce, err := r.readUint64()
		if err != nil {
			return m, err
		}
		m.Nonce = nonce
	case CmdAddr:
		a, err := decodeAddr(r)
		if err != nil {
			return m, err
		}
		m.Addr = &a
	case CmdReject:
		rj, err := decodeReject(r)
		if err != nil {
			return m, err
		}
		m.Reject = &rj
	case CmdInv, CmdGetData, CmdNotFound:
		inv, err := decodeInv(r)
		if err != nil {
			return m, err
		}
		m.Inv = &inv
	case CmdFilterAdd:
		f, err := decodeFilterAdd(r)
		if err != nil {
			return m, err
		}
		m.FilterAdd = &f
	case CmdFilterLoad:
		f, err := decodeFilterLoad(r)
		if err != nil {
			return m, err
		}
		m.FilterLoad = &f
	case CmdGetHeaders, CmdHeaders, CmdGetBlocks, CmdBlock, CmdTx:
		m.Raw = buf
	default:
		// Soft error: unknown commands are non-fatal to the connection.
		// The caller decides whether to drop the frame or escalate.
		return m, zerrors.NewUnknownCommandError("decode: unknown command %q", command)
	}

	return m, nil
}

func wrapReadErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return zerrors.NewPeerClosedEarlyError("connection closed mid-frame: %v", err)
	}
	return zerrors.NewUnknownError("read error: %v", err)
}
