package fs

import (
	"encoding/binary"
	"testing"

	"orionos/blockdev"
	"orionos/fs/xvfs"
)

func diskWithSectors(t *testing.T, sectors [][]byte) *blockdev.DriveTable {
	t.Helper()
	n := len(sectors)
	rd := blockdev.NewEmptyRamdisk(uint32(n), "probe-test")
	for i, s := range sectors {
		if err := rd.WriteSectors(uint32(i), 1, s); err != nil {
			t.Fatalf("seed sector %d: %v", i, err)
		}
	}
	dt := blockdev.NewDriveTable()
	dt.RefreshDriveMap([]blockdev.Backend{rd})
	return dt
}

func bootSector() []byte {
	s := make([]byte, 512)
	binary.LittleEndian.PutUint16(s[510:512], 0xAA55)
	return s
}

func TestQuickProbeNoBackendReturnsNone(t *testing.T) {
	dt := blockdev.NewDriveTable()
	res, err := QuickProbe(dt, 0)
	if err != nil {
		t.Fatalf("QuickProbe: %v", err)
	}
	if res.Type != FSNone {
		t.Errorf("Type = %v, want None", res.Type)
	}
}

func TestQuickProbeNoSignatureIsUnknown(t *testing.T) {
	dt := diskWithSectors(t, [][]byte{make([]byte, 512)})
	res, err := QuickProbe(dt, 0)
	if err != nil {
		t.Fatalf("QuickProbe: %v", err)
	}
	if res.Type != FSUnknown {
		t.Errorf("Type = %v, want Unknown", res.Type)
	}
}

func TestQuickProbeDetectsXVFS(t *testing.T) {
	sector0 := bootSector()
	copy(sector0, xvfs.Signature)
	sb := xvfs.Superblock{Magic: xvfs.Magic, BlockSize: 512, TotalBlocks: 10, BitmapStart: 2, DataStart: 3, FreeBlocks: 5, RootDirBlock: 3}
	sector1, err := xvfs.MarshalSuperblock(sb)
	if err != nil {
		t.Fatalf("MarshalSuperblock: %v", err)
	}

	dt := diskWithSectors(t, [][]byte{sector0, sector1})
	res, err := QuickProbe(dt, 0)
	if err != nil {
		t.Fatalf("QuickProbe: %v", err)
	}
	if res.Type != FSXVFS {
		t.Errorf("Type = %v, want XVFS", res.Type)
	}
}

func TestQuickProbeDetectsFAT16(t *testing.T) {
	sector0 := bootSector()
	copy(sector0[0x36:0x3E], "FAT16   ")

	dt := diskWithSectors(t, [][]byte{sector0})
	res, err := QuickProbe(dt, 0)
	if err != nil {
		t.Fatalf("QuickProbe: %v", err)
	}
	if res.Type != FSFAT16 {
		t.Errorf("Type = %v, want FAT16", res.Type)
	}
}

func TestQuickProbeRecursesIntoMBRPartition(t *testing.T) {
	mbrSector := bootSector()
	off := MBRPartitionTableOffset
	mbrSector[off] = 0x80
	mbrSector[off+4] = 0x0C
	binary.LittleEndian.PutUint32(mbrSector[off+8:off+12], 1)

	partSector := bootSector()
	copy(partSector[0x36:0x3E], "FAT16   ")

	dt := diskWithSectors(t, [][]byte{mbrSector, partSector})
	res, err := QuickProbe(dt, 0)
	if err != nil {
		t.Fatalf("QuickProbe: %v", err)
	}
	if res.Type != FSFAT16 || res.BaseLBA != 1 {
		t.Errorf("res = %+v, want FAT16 at LBA 1", res)
	}
}

func TestQuickProbeUnrecognizedPartitionTagsMBR(t *testing.T) {
	mbrSector := bootSector()
	off := MBRPartitionTableOffset
	mbrSector[off+4] = 0x07
	binary.LittleEndian.PutUint32(mbrSector[off+8:off+12], 1)

	partSector := bootSector() // valid boot sig, but no recognised fs tag

	dt := diskWithSectors(t, [][]byte{mbrSector, partSector})
	res, err := QuickProbe(dt, 0)
	if err != nil {
		t.Fatalf("QuickProbe: %v", err)
	}
	if res.Type != FSMBR {
		t.Errorf("Type = %v, want MBR", res.Type)
	}
}
