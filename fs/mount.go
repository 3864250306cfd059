package fs

import (
	"orionos/blockdev"
	kerrors "orionos/errors"
	"orionos/logging"
)

// OpenDriver quick-probes drive id and returns the Driver matching
// whatever filesystem it finds, ready to pass to Dispatcher.Mount.
// FSMBR and FSUnknown/FSNone have no driver and return NotFound.
func OpenDriver(dt *blockdev.DriveTable, id int) (Driver, error) {
	result, err := QuickProbe(dt, id)
	if err != nil {
		return nil, err
	}
	logging.WithDrive(logging.Default(), id).Debug("quick-probe classified drive", "fs", string(result.Type), "base_lba", result.BaseLBA)
	switch result.Type {
	case FSXVFS:
		return MountXVFS(dt, id, result.BaseLBA)
	case FSFAT16, FSFAT32:
		return MountFAT(dt, id, result.BaseLBA)
	default:
		return nil, kerrors.New(kerrors.NotFound, "fs.opendriver", "no recognized filesystem on drive")
	}
}
