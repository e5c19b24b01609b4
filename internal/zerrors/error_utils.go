package zerrors

import (
	"context"
	"errors"
	"strings"
)

// IsRetryableError determines if an error is transient and the operation
// should be retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_NETWORK_TIMEOUT,
			ERR_NETWORK_ERROR,
			ERR_SERVICE_UNAVAILABLE,
			ERR_NETWORK_CONNECTION_REFUSED:
			return true
		case ERR_NETWORK_INVALID_RESPONSE,
			ERR_NETWORK_PEER_MALICIOUS:
			return false
		}
	}

	return false
}

// IsNetworkError determines if an error is network-related: timeouts,
// connection failures, and invalid responses.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_NETWORK_ERROR,
			ERR_NETWORK_TIMEOUT,
			ERR_NETWORK_CONNECTION_REFUSED,
			ERR_NETWORK_INVALID_RESPONSE,
			ERR_NETWORK_PEER_MALICIOUS:
			return true
		}
	}

	errStr := strings.ToLower(err.Error())
	networkStrings := []string{
		"network", "connection", "timeout", "dial tcp", "dial udp",
		"no such host", "connection refused", "connection reset",
		"broken pipe", "eof",
	}

	for _, s := range networkStrings {
		if strings.Contains(errStr, s) {
			return true
		}
	}

	return false
}

// IsMaliciousResponseError determines if an error indicates a peer sending
// deliberately malformed or hostile input, as opposed to a plain network
// hiccup.
func IsMaliciousResponseError(err error) bool {
	if err == nil {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_NETWORK_PEER_MALICIOUS, ERR_NETWORK_INVALID_RESPONSE, ERR_BAD_PAYLOAD:
			return true
		}
	}

	errStr := strings.ToLower(err.Error())
	maliciousStrings := []string{
		"invalid header", "malformed", "corrupt", "malicious", "protocol violation",
	}

	for _, s := range maliciousStrings {
		if strings.Contains(errStr, s) {
			return true
		}
	}

	return false
}

// IsContextError determines if an error stems from context cancellation or deadline.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var tErr *Error
	if As(err, &tErr) {
		if tErr.Code() == ERR_CONTEXT_CANCELED || tErr.Code() == ERR_CONTEXT {
			return true
		}
	}

	return false
}

// GetErrorCategory returns a coarse category string for logging and metrics.
func GetErrorCategory(err error) string {
	if err == nil {
		return "none"
	}

	if IsContextError(err) {
		return "context"
	}

	if IsMaliciousResponseError(err) {
		return "malicious"
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_WRONG_MAGIC, ERR_OVERSIZE, ERR_BAD_CHECKSUM, ERR_BAD_PAYLOAD, ERR_UNKNOWN_COMMAND:
			return "framing"
		case ERR_TIMEOUT, ERR_PEER_CLOSED_EARLY, ERR_VERSION_MISMATCH, ERR_SELF_CONNECTION, ERR_POLICY_REJECT:
			return "handshake"
		case ERR_QUEUE_FULL, ERR_PEER_UNKNOWN, ERR_NOT_ESTABLISHED:
			return "runtime"
		}
	}

	if IsNetworkError(err) {
		return "network"
	}

	return "unknown"
}
