package fsdb

import (
	"errors"

	"github.com/mwantia/fsdb/data"
)

var (
	// Address errors
	ErrMalformedBackendAddress       = errors.New("fsdb: malformed backend address")
	ErrUnknownBackendProtocolAddress = errors.New("fsdb: unknown backend protocol address")

	// Aliases of the data sentinels most callers check for
	ErrNotConnected = data.ErrNotConnected
	ErrBusy         = data.ErrBusy
	ErrInvalidID    = data.ErrInvalidID
	ErrNotExist     = data.ErrNotExist
	ErrExist        = data.ErrExist
	ErrNoContent    = data.ErrNoContent
	ErrReadOnly     = data.ErrReadOnly
)
