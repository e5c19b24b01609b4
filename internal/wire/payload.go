package wire

import "github.com/runziggurat/zcash/internal/zerrors"

// VersionPayload is the body of a Version message.
type VersionPayload struct {
	Version     int32
	Services    uint64
	Timestamp   int64
	AddrRecv    NetworkAddress // no timestamp
	AddrFrom    NetworkAddress // no timestamp
	Nonce       uint64
	UserAgent   string
	StartHeight int32
	Relay       bool
}

func encodeVersion(v VersionPayload) []byte {
	buf := make([]byte, 0, 128)
	buf = appendInt32(buf, v.Version)
	buf = appendUint64(buf, v.Services)
	buf = appendInt64(buf, v.Timestamp)
	buf = encodeNetworkAddressBody(buf, v.AddrRecv)
	buf = encodeNetworkAddressBody(buf, v.AddrFrom)
	buf = appendUint64(buf, v.Nonce)
	buf = writeVarStr(buf, v.UserAgent)
	buf = appendInt32(buf, v.StartHeight)
	relay := byte(0)
	if v.Relay {
		relay = 1
	}
	buf = append(buf, relay)
	return buf
}

func decodeVersion(r *reader) (VersionPayload, error) {
	var v VersionPayload
	var err error

	if v.Version, err = r.readInt32(); err != nil {
		return v, err
	}
	if v.Services, err = r.readUint64(); err != nil {
		return v, err
	}
	if v.Timestamp, err = r.readInt64(); err != nil {
		return v, err
	}
	if v.AddrRecv, err = decodeNetworkAddressBody(r); err != nil {
		return v, err
	}
	if v.AddrFrom, err = decodeNetworkAddressBody(r); err != nil {
		return v, err
	}
	if v.Nonce, err = r.readUint64(); err != nil {
		return v, err
	}
	if v.UserAgent, err = r.readVarStr(); err != nil {
		return v, err
	}
	if v.StartHeight, err = r.readInt32(); err != nil {
		return v, err
	}

	// Relay is absent on some pre-70001 peers; treat its absence as true,
	// matching zcashd's own default when the field is missing.
	if r.remaining() > 0 {
		b, err := r.readByte()
		if err != nil {
			return v, err
		}
		v.Relay = b != 0
	} else {
		v.Relay = true
	}

	return v, nil
}

// AddrPayload lists peer addresses, each with a timestamp.
type AddrPayload struct {
	Addrs []NetworkAddress
}

func encodeAddr(a AddrPayload) []byte {
	buf := writeVarInt(nil, uint64(len(a.Addrs)))
	for _, addr := range a.Addrs {
		addr.HasTimestamp = true
		buf = encodeNetworkAddress(buf, addr)
	}
	return buf
}

func decodeAddr(r *reader) (AddrPayload, error) {
	n, err := r.readVarInt()
	if err != nil {
		return AddrPayload{}, err
	}

	addrs := make([]NetworkAddress, 0, n)
	for i := uint64(0); i < n; i++ {
		a, err := decodeNetworkAddress(r, true)
		if err != nil {
			return AddrPayload{}, err
		}
		addrs = append(addrs, a)
	}
	return AddrPayload{Addrs: addrs}, nil
}

// CCode is the reject reason code (BIP-61).
type CCode byte

const (
	CCodeMalformed       CCode = 0x01
	CCodeInvalid         CCode = 0x10
	CCodeObsolete        CCode = 0x11
	CCodeDuplicate       CCode = 0x12
	CCodeNonStandard     CCode = 0x40
	CCodeDust            CCode = 0x41
	CCodeInsufficientFee CCode = 0x42
	CCodeCheckpoint      CCode = 0x43
	CCodeOther           CCode = 0x50
)

// RejectPayload reports why a message or transaction was refused.
type RejectPayload struct {
	Message string
	CCode   CCode
	Reason  string
	Data    []byte
}

func encodeReject(rj RejectPayload) []byte {
	buf := writeVarStr(nil, rj.Message)
	buf = append(buf, byte(rj.CCode))
	buf = writeVarStr(buf, rj.Reason)
	buf = append(buf, rj.Data...)
	return buf
}

func decodeReject(r *reader) (RejectPayload, error) {
	var rj RejectPayload
	var err error

	if rj.Message, err = r.readVarStr(); err != nil {
		return rj, err
	}
	ccode, err := r.readByte()
	if err != nil {
		return rj, err
	}
	rj.CCode = CCode(ccode)
	if rj.Reason, err = r.readVarStr(); err != nil {
		return rj, err
	}
	rj.Data = append([]byte(nil), r.buf[r.pos:]...)
	r.pos = len(r.buf)
	return rj, nil
}

// ObjectKind tags an inventory vector's payload type.
type ObjectKind uint32

const (
	ObjectError         ObjectKind = 0
	ObjectTx            ObjectKind = 1
	ObjectBlock         ObjectKind = 2
	ObjectFilteredBlock ObjectKind = 3
)

// InvVect is one entry of an Inv/GetData/NotFound payload.
type InvVect struct {
	Kind ObjectKind
	Hash [32]byte
}

// InvPayload is the body shared by Inv, GetData, and NotFound.
type InvPayload struct {
	Items []InvVect
}

func encodeInv(inv InvPayload) []byte {
	buf := writeVarInt(nil, uint64(len(inv.Items)))
	for _, item := range inv.Items {
		buf = appendUint32(buf, uint32(item.Kind))
		buf = append(buf, item.Hash[:]...)
	}
	return buf
}

func decodeInv(r *reader) (InvPayload, error) {
	n, err := r.readVarInt()
	if err != nil {
		return InvPayload{}, err
	}

	items := make([]InvVect, 0, n)
	for i := uint64(0); i < n; i++ {
		kind, err := r.readUint32()
		if err != nil {
			return InvPayload{}, err
		}
		hashBytes, err := r.readBytes(32)
		if err != nil {
			return InvPayload{}, err
		}
		var hash [32]byte
		copy(hash[:], hashBytes)
		items = append(items, InvVect{Kind: ObjectKind(kind), Hash: hash})
	}
	return InvPayload{Items: items}, nil
}

const (
	maxFilterAddDataLen = 520
	maxFilterLoadLen    = 36000
)

// FilterAddPayload appends one element to a peer-installed bloom filter.
type FilterAddPayload struct {
	Data []byte
}

func encodeFilterAdd(f FilterAddPayload) []byte {
	buf := writeVarInt(nil, uint64(len(f.Data)))
	return append(buf, f.Data...)
}

func decodeFilterAdd(r *reader) (FilterAddPayload, error) {
	n, err := r.readVarInt()
	if err != nil {
		return FilterAddPayload{}, err
	}
	if n > maxFilterAddDataLen {
		return FilterAddPayload{}, zerrors.NewBadPayloadError("filteradd: %d bytes exceeds max %d", n, maxFilterAddDataLen)
	}
	data, err := r.readBytes(int(n))
	if err != nil {
		return FilterAddPayload{}, err
	}
	return FilterAddPayload{Data: append([]byte(nil), data...)}, nil
}

// FilterLoadPayload installs a BIP-37 bloom filter on the connection.
type FilterLoadPayload struct {
	Filter      []byte
	HashFuncs   uint32
	Tweak       uint32
	Flags       byte
}

func encodeFilterLoad(f FilterLoadPayload) []byte {
	buf := writeVarInt(nil, uint64(len(f.Filter)))
	buf = append(buf, f.Filter...)
	buf = appendUint32(buf, f.HashFuncs)
	buf = appendUint32(buf, f.Tweak)
	buf = append(buf, f.Flags)
	return buf
}

func decodeFilterLoad(r *reader) (FilterLoadPayload, error) {
	n, err := r.readVarInt()
	if err != nil {
		return FilterLoadPayload{}, err
	}
	if n > maxFilterLoadLen {
		return FilterLoadPayload{}, zerrors.NewBadPayloadError("filterload: %d bytes exceeds max %d", n, maxFilterLoadLen)
	}

	filter, err := r.readBytes(int(n))
	if err != nil {
		return FilterLoadPayload{}, err
	}

	var f FilterLoadPayload
	f.Filter = append([]byte(nil), filter...)
	if f.HashFuncs, err = r.readUint32(); err != nil {
		return f, err
	}
	if f.Tweak, err = r.readUint32(); err != nil {
		return f, err
	}
	if f.Flags, err = r.readByte(); err != nil {
		return f, err
	}
	return f, nil
}
