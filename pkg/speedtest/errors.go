package speedtest

import (
	"errors"

	"github.com/pojntfx/storage-throughput/pkg/storage"
)

var (
	// ErrInvalidArgument is returned for non-positive payload sizes.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStorageUnavailable means a target's root folder can't be created or
	// failed its accessibility probe. Only that target's run is aborted.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrStorage matches failures of the storage primitives. Only the
	// affected payload size is reported as failed.
	ErrStorage = storage.ErrStorage
)
