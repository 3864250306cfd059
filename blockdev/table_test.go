package blockdev

import (
	"testing"

	kerrors "orionos/errors"
)

func TestRefreshDriveMapPopulatesSlots(t *testing.T) {
	dt := NewDriveTable()
	rd0 := NewEmptyRamdisk(4, "ramdisk0")
	rd1 := NewEmptyRamdisk(8, "ramdisk1")
	dt.RefreshDriveMap([]Backend{rd0, rd1})

	s0, err := dt.Slot(0)
	if err != nil || !s0.Present || s0.Kind != KindRamdisk {
		t.Fatalf("slot 0 = %+v, err=%v", s0, err)
	}
	s2, err := dt.Slot(2)
	if err != nil || s2.Present {
		t.Fatalf("slot 2 should be absent, got %+v", s2)
	}
}

func TestRefreshDriveMapInvalidatesChangedSlot(t *testing.T) {
	dt := NewDriveTable()
	rd := NewEmptyRamdisk(4, "ramdisk0")
	dt.RefreshDriveMap([]Backend{rd})
	if err := dt.SetProbeResult(0, "XVFS", 0, nil); err != nil {
		t.Fatalf("SetProbeResult: %v", err)
	}

	// A hotplug/rescan swaps the backend at id 0; the cached fs tag
	// must be invalidated back to Unknown.
	rd2 := NewEmptyRamdisk(4, "ramdisk0-replaced")
	dt.RefreshDriveMap([]Backend{rd2})
	s0, _ := dt.Slot(0)
	if s0.FSType != "Unknown" {
		t.Errorf("FSType after backend swap = %q, want Unknown", s0.FSType)
	}
}

func TestRefreshDriveMapPreservesProbeWhenUnchanged(t *testing.T) {
	dt := NewDriveTable()
	rd := NewEmptyRamdisk(4, "ramdisk0")
	dt.RefreshDriveMap([]Backend{rd})
	dt.SetProbeResult(0, "XVFS", 2, nil)

	dt.RefreshDriveMap([]Backend{rd}) // same backend instance
	s0, _ := dt.Slot(0)
	if s0.FSType != "XVFS" {
		t.Errorf("FSType after no-op refresh = %q, want XVFS (preserved)", s0.FSType)
	}
}

func TestReadWriteThroughTable(t *testing.T) {
	dt := NewDriveTable()
	rd := NewEmptyRamdisk(2, "ramdisk0")
	dt.RefreshDriveMap([]Backend{rd})

	buf := make([]byte, SectorSize)
	buf[0] = 0x7F
	if err := dt.WriteSectors(0, 0, 1, buf); err != nil {
		t.Fatalf("WriteSectors: %v", err)
	}
	got := make([]byte, SectorSize)
	if err := dt.ReadSectors(0, 0, 1, got); err != nil {
		t.Fatalf("ReadSectors: %v", err)
	}
	if got[0] != 0x7F {
		t.Errorf("got[0] = %#x, want 0x7f", got[0])
	}
}

func TestReadSectorsAbsentDriveReturnsNotFound(t *testing.T) {
	dt := NewDriveTable()
	buf := make([]byte, SectorSize)
	if err := dt.ReadSectors(3, 0, 1, buf); !kerrors.IsKind(err, kerrors.NotFound) {
		t.Errorf("ReadSectors on absent drive = %v, want NotFound", err)
	}
}

func TestSlotOutOfRangeID(t *testing.T) {
	dt := NewDriveTable()
	if _, err := dt.Slot(MaxDisks); !kerrors.IsKind(err, kerrors.InvalidArgument) {
		t.Errorf("Slot(MaxDisks) = %v, want InvalidArgument", err)
	}
}
