package nca

import "github.com/falk/nca-go/ncaerr"

// Re-exported so callers of this package can write nca.Unsupported etc.
// without importing ncaerr directly for the common case.
const (
	InvalidInput = ncaerr.InvalidInput
	Unsupported  = ncaerr.Unsupported
	Io           = ncaerr.Io
	OutOfRange   = ncaerr.OutOfRange
)

func newErr(kind ncaerr.Kind, op, msg string) error {
	return ncaerr.New(kind, op, msg)
}

func wrapErr(kind ncaerr.Kind, op string, err error) error {
	return ncaerr.Wrap(kind, op, err)
}
