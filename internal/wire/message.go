package wire

// Message is a tagged variant over the Zcash command set. Only the field
// matching Command is meaningful; payloads this crawler never needs to
// interpret (blocks, transactions, headers) are kept as opaque bytes so
// they still round-trip through Encode/Decode untouched.
type Message struct {
	Command string

	Version    *VersionPayload
	Addr       *AddrPayload
	Reject     *RejectPayload
	Inv        *InvPayload // shared body for Inv, GetData, NotFound
	FilterAdd  *FilterAddPayload
	FilterLoad *FilterLoadPayload
	Nonce      uint64 // Ping, Pong

	// Raw holds the payload bytes verbatim for commands this crawler treats
	// as opaque (GetHeaders, Headers, GetBlocks, Block, Tx) and for any
	// payload-less command (Verack, GetAddr, Mempool, FilterClear).
	Raw []byte
}

// RawMessage is a fuzz-mode variant carrying literal header fields and body
// bytes with no validation, letting a test construct any byte sequence.
type RawMessage struct {
	Header  Header
	Payload []byte
}

// NewVersion builds a Version message.
func NewVersion(v VersionPayload) Message {
	return Message{Command: CmdVersion, Version: &v}
}

// NewVerack builds a Verack message.
func NewVerack() Message {
	return Message{Command: CmdVerack}
}

// NewPing builds a Ping message carrying the given nonce.
func NewPing(nonce uint64) Message {
	return Message{Command: CmdPing, Nonce: nonce}
}

// NewPong builds a Pong reply echoing a Ping's nonce.
func NewPong(nonce uint64) Message {
	return Message{Command: CmdPong, Nonce: nonce}
}

// NewGetAddr builds a GetAddr message.
func NewGetAddr() Message {
	return Message{Command: CmdGetAddr}
}

// NewAddr builds an Addr message listing the given peer addresses.
func NewAddr(addrs []NetworkAddress) Message {
	return Message{Command: CmdAddr, Addr: &AddrPayload{Addrs: addrs}}
}

// NewMempool builds a Mempool message.
func NewMempool() Message {
	return Message{Command: CmdMempool}
}

// NewReject builds a Reject message.
func NewReject(rj RejectPayload) Message {
	return Message{Command: CmdReject, Reject: &rj}
}

// NewInv builds an Inv message.
func NewInv(items []InvVect) Message {
	return Message{Command: CmdInv, Inv: &InvPayload{Items: items}}
}

// NewGetData builds a GetData message.
func NewGetData(items []InvVect) Message {
	return Message{Command: CmdGetData, Inv: &InvPayload{Items: items}}
}

// NewNotFound builds a NotFound message.
func NewNotFound(items []InvVect) Message {
	return Message{Command: CmdNotFound, Inv: &InvPayload{Items: items}}
}

// NewFilterAdd builds a FilterAdd message.
func NewFilterAdd(data []byte) Message {
	return Message{Command: CmdFilterAdd, FilterAdd: &FilterAddPayload{Data: data}}
}

// NewFilterLoad builds a FilterLoad message.
func NewFilterLoad(f FilterLoadPayload) Message {
	return Message{Command: CmdFilterLoad, FilterLoad: &f}
}

// NewFilterClear builds a FilterClear message.
func NewFilterClear() Message {
	return Message{Command: CmdFilterClear}
}
