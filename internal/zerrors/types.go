package zerrors

// Predefined sentinel errors, one per taxonomy code, for use with errors.Is.
var (
	ErrUnknown             = New(ERR_UNKNOWN, "unknown error")
	ErrInvalidArgument     = New(ERR_INVALID_ARGUMENT, "invalid argument")
	ErrConfiguration       = New(ERR_CONFIGURATION, "configuration error")
	ErrContext             = New(ERR_CONTEXT, "context error")
	ErrContextCanceled     = New(ERR_CONTEXT_CANCELED, "context canceled")
	ErrError               = New(ERR_ERROR, "generic error")
	ErrServiceUnavailable  = New(ERR_SERVICE_UNAVAILABLE, "service unavailable")
	ErrServiceNotStarted   = New(ERR_SERVICE_NOT_STARTED, "service not started")
	ErrServiceError        = New(ERR_SERVICE_ERROR, "service error")
	ErrWrongMagic          = New(ERR_WRONG_MAGIC, "wrong magic bytes")
	ErrOversize            = New(ERR_OVERSIZE, "message exceeds maximum length")
	ErrBadChecksum         = New(ERR_BAD_CHECKSUM, "checksum mismatch")
	ErrBadPayload          = New(ERR_BAD_PAYLOAD, "malformed payload")
	ErrUnknownCommand      = New(ERR_UNKNOWN_COMMAND, "unknown command")
	ErrTimeout             = New(ERR_TIMEOUT, "operation timed out")
	ErrPeerClosedEarly     = New(ERR_PEER_CLOSED_EARLY, "peer closed connection early")
	ErrVersionMismatch     = New(ERR_VERSION_MISMATCH, "protocol version too old")
	ErrSelfConnection      = New(ERR_SELF_CONNECTION, "self-connection detected via nonce reuse")
	ErrPolicyReject        = New(ERR_POLICY_REJECT, "handshake rejected by policy")
	ErrQueueFull           = New(ERR_QUEUE_FULL, "outbound queue full")
	ErrPeerUnknown         = New(ERR_PEER_UNKNOWN, "unknown peer address")
	ErrNotEstablished      = New(ERR_NOT_ESTABLISHED, "connection not established")
)

func NewUnknownError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN, message, params...)
}

func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERR_INVALID_ARGUMENT, message, params...)
}

func NewConfigurationError(message string, params ...interface{}) error {
	return New(ERR_CONFIGURATION, message, params...)
}

func NewContextError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT, message, params...)
}

func NewContextCanceledError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT_CANCELED, message, params...)
}

func NewError(message string, params ...interface{}) error {
	return New(ERR_ERROR, message, params...)
}

func NewServiceUnavailableError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_UNAVAILABLE, message, params...)
}

func NewServiceNotStartedError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_NOT_STARTED, message, params...)
}

func NewServiceError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_ERROR, message, params...)
}

// NewWrongMagicError reports a header whose magic bytes don't match the
// configured network.
func NewWrongMagicError(message string, params ...interface{}) error {
	return New(ERR_WRONG_MAGIC, message, params...)
}

// NewOversizeError reports a header claiming a body longer than the
// configured maximum frame size.
func NewOversizeError(message string, params ...interface{}) error {
	return New(ERR_OVERSIZE, message, params...)
}

// NewBadChecksumError reports a payload whose checksum does not match the
// header. Non-fatal to the connection; the message is simply dropped.
func NewBadChecksumError(message string, params ...interface{}) error {
	return New(ERR_BAD_CHECKSUM, message, params...)
}

// NewBadPayloadError reports a payload that failed to decode for its
// declared command.
func NewBadPayloadError(message string, params ...interface{}) error {
	return New(ERR_BAD_PAYLOAD, message, params...)
}

// NewUnknownCommandError reports a header naming a command outside the
// supported set.
func NewUnknownCommandError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN_COMMAND, message, params...)
}

// NewTimeoutError reports a handshake or probe deadline expiring.
func NewTimeoutError(message string, params ...interface{}) error {
	return New(ERR_TIMEOUT, message, params...)
}

// NewPeerClosedEarlyError reports the remote closing before the handshake completed.
func NewPeerClosedEarlyError(message string, params ...interface{}) error {
	return New(ERR_PEER_CLOSED_EARLY, message, params...)
}

// NewVersionMismatchError reports a peer's advertised version below the
// minimum this crawler accepts.
func NewVersionMismatchError(message string, params ...interface{}) error {
	return New(ERR_VERSION_MISMATCH, message, params...)
}

// NewSelfConnectionError reports a Version whose nonce matches one of our own.
func NewSelfConnectionError(message string, params ...interface{}) error {
	return New(ERR_SELF_CONNECTION, message, params...)
}

// NewPolicyRejectError reports a handshake abandoned by an injected test policy.
func NewPolicyRejectError(message string, params ...interface{}) error {
	return New(ERR_POLICY_REJECT, message, params...)
}

// NewQueueFullError reports a connection's outbound queue at capacity.
func NewQueueFullError(message string, params ...interface{}) error {
	return New(ERR_QUEUE_FULL, message, params...)
}

// NewPeerUnknownError reports an operation addressed to a peer the caller never connected to.
func NewPeerUnknownError(message string, params ...interface{}) error {
	return New(ERR_PEER_UNKNOWN, message, params...)
}

// NewNotEstablishedError reports an operation attempted on a connection that never reached Established.
func NewNotEstablishedError(message string, params ...interface{}) error {
	return New(ERR_NOT_ESTABLISHED, message, params...)
}

// NewNetworkError reports a low-level dial, listen, or socket I/O failure
// not otherwise classified above.
func NewNetworkError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_ERROR, message, params...)
}

// NewConnectionRefusedError reports a dial actively refused by the remote host.
func NewConnectionRefusedError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_CONNECTION_REFUSED, message, params...)
}
