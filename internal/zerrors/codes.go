// Package zerrors implements the error taxonomy carried through every
// layer of the crawler: framing errors from the codec, handshake errors
// from the FSM, and runtime errors from the synthetic peer and crawler
// loop. It intentionally does not carry gRPC status wrapping — this
// system speaks JSON-RPC, not gRPC.
package zerrors

// ERR identifies a class of error. Codes are grouped by the taxonomy in
// the wire-protocol design: framing, handshake, runtime, then generic.
type ERR int32

const (
	ERR_UNKNOWN ERR = iota
	ERR_INVALID_ARGUMENT
	ERR_CONFIGURATION
	ERR_CONTEXT
	ERR_CONTEXT_CANCELED
	ERR_ERROR
	ERR_SERVICE_UNAVAILABLE
	ERR_SERVICE_NOT_STARTED
	ERR_SERVICE_ERROR

	// Framing errors, raised while decoding a header or payload.
	ERR_WRONG_MAGIC
	ERR_OVERSIZE
	ERR_BAD_CHECKSUM
	ERR_BAD_PAYLOAD
	ERR_UNKNOWN_COMMAND

	// Handshake errors, raised while negotiating Version/Verack.
	ERR_TIMEOUT
	ERR_PEER_CLOSED_EARLY
	ERR_VERSION_MISMATCH
	ERR_SELF_CONNECTION
	ERR_POLICY_REJECT

	// Runtime errors, raised by the connection and synthetic-peer layers.
	ERR_QUEUE_FULL
	ERR_PEER_UNKNOWN
	ERR_NOT_ESTABLISHED

	// Network/IO classification, used by IsRetryableError / IsNetworkError.
	ERR_NETWORK_TIMEOUT
	ERR_NETWORK_ERROR
	ERR_NETWORK_CONNECTION_REFUSED
	ERR_NETWORK_INVALID_RESPONSE
	ERR_NETWORK_PEER_MALICIOUS
)

var errNames = map[ERR]string{
	ERR_UNKNOWN:                    "UNKNOWN",
	ERR_INVALID_ARGUMENT:           "INVALID_ARGUMENT",
	ERR_CONFIGURATION:              "CONFIGURATION",
	ERR_CONTEXT:                    "CONTEXT",
	ERR_CONTEXT_CANCELED:           "CONTEXT_CANCELED",
	ERR_ERROR:                      "ERROR",
	ERR_SERVICE_UNAVAILABLE:        "SERVICE_UNAVAILABLE",
	ERR_SERVICE_NOT_STARTED:        "SERVICE_NOT_STARTED",
	ERR_SERVICE_ERROR:              "SERVICE_ERROR",
	ERR_WRONG_MAGIC:                "WRONG_MAGIC",
	ERR_OVERSIZE:                   "OVERSIZE",
	ERR_BAD_CHECKSUM:               "BAD_CHECKSUM",
	ERR_BAD_PAYLOAD:                "BAD_PAYLOAD",
	ERR_UNKNOWN_COMMAND:            "UNKNOWN_COMMAND",
	ERR_TIMEOUT:                    "TIMEOUT",
	ERR_PEER_CLOSED_EARLY:          "PEER_CLOSED_EARLY",
	ERR_VERSION_MISMATCH:           "VERSION_MISMATCH",
	ERR_SELF_CONNECTION:            "SELF_CONNECTION",
	ERR_POLICY_REJECT:              "POLICY_REJECT",
	ERR_QUEUE_FULL:                 "QUEUE_FULL",
	ERR_PEER_UNKNOWN:               "PEER_UNKNOWN",
	ERR_NOT_ESTABLISHED:            "NOT_ESTABLISHED",
	ERR_NETWORK_TIMEOUT:            "NETWORK_TIMEOUT",
	ERR_NETWORK_ERROR:              "NETWORK_ERROR",
	ERR_NETWORK_CONNECTION_REFUSED: "NETWORK_CONNECTION_REFUSED",
	ERR_NETWORK_INVALID_RESPONSE:   "NETWORK_INVALID_RESPONSE",
	ERR_NETWORK_PEER_MALICIOUS:     "NETWORK_PEER_MALICIOUS",
}

// String returns the symbolic name of the code, or "UNKNOWN" if unregistered.
func (e ERR) String() string {
	if name, ok := errNames[e]; ok {
		return name
	}
	return "UNKNOWN"
}

// Enum returns a pointer to e, mirroring the accessor generated protobuf
// enums expose so Error.Error() can format consistently either way.
func (e ERR) Enum() *ERR {
	return &e
}

func (e ERR) valid() bool {
	_, ok := errNames[e]
	return ok
}
