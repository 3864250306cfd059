package blockdev

import (
	"sync"

	kerrors "orionos/errors"
)

// MaxDisks is the fixed drive-table size.
const MaxDisks = 8

// DriveSlot is one entry of the drive descriptor array.
// FSType, BaseLBA and BPB are populated by the quick-probe, not by
// RefreshDriveMap; they are zeroed whenever the slot's backend changes.
type DriveSlot struct {
	Present bool
	Kind    BackendKind
	Model   string
	FSType  string // "FAT16" | "FAT32" | "XVFS" | "MBR" | "Unknown" | "None"
	BaseLBA uint32
	BPB     any // cached BPB for FAT volumes, set by the fs package
}

// DriveTable is the fixed [MaxDisks]DriveSlot array plus the hidden
// drive-id -> backend mapping.
type DriveTable struct {
	mu       sync.Mutex
	slots    [MaxDisks]DriveSlot
	backends [MaxDisks]Backend
}

// NewDriveTable returns an empty table with no drives present.
func NewDriveTable() *DriveTable {
	return &DriveTable{}
}

// RefreshDriveMap rebuilds the id->backend mapping from an enumeration
// pass, assigning drive ids in enumeration order. Slots beyond
// len(backends) (or beyond MaxDisks) are cleared. A slot's prior
// FSType/BaseLBA/BPB are invalidated whenever its backend changes,
// so a hotplug or rescan never leaves a stale classification behind.
func (t *DriveTable) RefreshDriveMap(backends []Backend) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id := 0; id < MaxDisks; id++ {
		var b Backend
		if id < len(backends) {
			b = backends[id]
		}
		prev := t.backends[id]
		t.backends[id] = b
		if b == nil || !b.Present() {
			t.slots[id] = DriveSlot{}
			continue
		}
		if prev != b {
			t.slots[id] = DriveSlot{
				Present: true,
				Kind:    b.Kind(),
				Model:   b.Model(),
				FSType:  "Unknown",
			}
		} else {
			t.slots[id].Present = true
			t.slots[id].Kind = b.Kind()
			t.slots[id].Model = b.Model()
		}
	}
}

// Slot returns a copy of the descriptor for drive id.
func (t *DriveTable) Slot(id int) (DriveSlot, error) {
	if id < 0 || id >= MaxDisks {
		return DriveSlot{}, kerrors.New(kerrors.InvalidArgument, "blockdev.slot", "drive id out of range")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots[id], nil
}

// SetProbeResult records a quick-probe classification for drive id.
func (t *DriveTable) SetProbeResult(id int, fsType string, baseLBA uint32, bpb any) error {
	if id < 0 || id >= MaxDisks {
		return kerrors.New(kerrors.InvalidArgument, "blockdev.setprobe", "drive id out of range")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.slots[id].Present {
		return kerrors.New(kerrors.NotFound, "blockdev.setprobe", "drive not present")
	}
	t.slots[id].FSType = fsType
	t.slots[id].BaseLBA = baseLBA
	t.slots[id].BPB = bpb
	return nil
}

func (t *DriveTable) backend(id int) (Backend, error) {
	if id < 0 || id >= MaxDisks {
		return nil, kerrors.New(kerrors.InvalidArgument, "blockdev", "drive id out of range")
	}
	t.mu.Lock()
	b := t.backends[id]
	t.mu.Unlock()
	if b == nil || !b.Present() {
		return nil, kerrors.New(kerrors.NotFound, "blockdev", "drive not present")
	}
	return b, nil
}

// Present reports whether drive id has a backend attached. An
// out-of-range id is simply reported absent, mirroring the C ABI's
// "false means not present or not usable" contract.
func (t *DriveTable) Present(id int) bool {
	b, err := t.backend(id)
	return err == nil && b.Present()
}

// SectorCount reports the backend's sector count, or 0 if absent.
func (t *DriveTable) SectorCount(id int) uint32 {
	b, err := t.backend(id)
	if err != nil {
		return 0
	}
	return b.SectorCount()
}

// ReadSectors performs bounds-checked absolute sector I/O through the
// resolved backend. count==0 means 256 sectors.
func (t *DriveTable) ReadSectors(id int, lba uint32, count uint16, buf []byte) error {
	b, err := t.backend(id)
	if err != nil {
		return err
	}
	return b.ReadSectors(lba, count, buf)
}

// WriteSectors is the write counterpart of ReadSectors.
func (t *DriveTable) WriteSectors(id int, lba uint32, count uint16, buf []byte) error {
	b, err := t.backend(id)
	if err != nil {
		return err
	}
	return b.WriteSectors(lba, count, buf)
}

// Flush flushes the resolved backend.
func (t *DriveTable) Flush(id int) error {
	b, err := t.backend(id)
	if err != nil {
		return err
	}
	return b.Flush()
}
