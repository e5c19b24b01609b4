package harness

import "github.com/runziggurat/zcash/internal/zerrors"

func errInvalidKind(kind NodeKind) error {
	return zerrors.NewInvalidArgumentError("harness: unsupported node kind %q", kind)
}

func errMissingField(field string) error {
	return zerrors.NewInvalidArgumentError("harness: missing required field %q", field)
}
