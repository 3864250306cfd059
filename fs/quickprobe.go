// Package fs implements filesystem dispatch: the quick-probe
// classifier, MBR parsing and the single-active-mount router that
// forwards syscalls to the FAT or XVFS driver.
package fs

import (
	"orionos/blockdev"
	"orionos/fs/fat"
	"orionos/fs/xvfs"
)

// FSType names the classification quick-probe can return, matching
// the short ASCII tags stored in the drive descriptor.
type FSType string

const (
	FSNone    FSType = "None"
	FSUnknown FSType = "Unknown"
	FSXVFS    FSType = "XVFS"
	FSFAT16   FSType = "FAT16"
	FSFAT32   FSType = "FAT32"
	FSMBR     FSType = "MBR"
)

// ProbeResult is the quick-probe's classification of a drive.
type ProbeResult struct {
	Type    FSType
	BaseLBA uint32
	// PartitionType is the matched MBR partition's raw type byte, set
	// only when the classification came from recursing into a
	// partition table entry (zero otherwise). The `disk` shell command
	// prints DriveSlot fields only and does not show it.
	PartitionType uint8
}

// QuickProbe classifies the filesystem on drive id. The probe is
// read-only and bounded: one sector-0 read, then at most
// one more read for the XVFS superblock check, plus (if sector 0 turns
// out to be an MBR) one recursive probe of the first non-zero
// partition entry.
func QuickProbe(dt *blockdev.DriveTable, id int) (ProbeResult, error) {
	sector0 := make([]byte, blockdev.SectorSize)
	if err := dt.ReadSectors(id, 0, 1, sector0); err != nil {
		return ProbeResult{Type: FSNone}, nil
	}
	return quickProbeSector(dt, id, sector0, 0)
}

// quickProbeSector classifies an already-read sector 0, recursing at
// most once into the first MBR partition (the format has no nested
// extended partitions in orionOS's scope).
func quickProbeSector(dt *blockdev.DriveTable, id int, sector0 []byte, baseLBA uint32) (ProbeResult, error) {
	if !hasBootSignature(sector0) {
		return ProbeResult{Type: FSUnknown}, nil
	}

	if xvfs.HasSignature(sector0) {
		sector1 := make([]byte, blockdev.SectorSize)
		if err := dt.ReadSectors(id, baseLBA+1, 1, sector1); err == nil {
			if _, err := xvfs.ParseSuperblock(sector1); err == nil {
				return ProbeResult{Type: FSXVFS, BaseLBA: baseLBA}, nil
			}
		}
	}

	switch fat.DetectKind(sector0) {
	case fat.FAT16:
		return ProbeResult{Type: FSFAT16, BaseLBA: baseLBA}, nil
	case fat.FAT32:
		return ProbeResult{Type: FSFAT32, BaseLBA: baseLBA}, nil
	}

	parts := ParseMBRPartitions(sector0)
	if part, ok := FirstPartition(parts); ok && baseLBA == 0 {
		partSector := make([]byte, blockdev.SectorSize)
		if err := dt.ReadSectors(id, part.BaseLBA, 1, partSector); err == nil {
			result, err := quickProbeSector(dt, id, partSector, part.BaseLBA)
			if err == nil && result.Type == FSUnknown {
				// A valid partition table exists but its contents
				// aren't a filesystem orionOS recognises; tag the
				// drive as partitioned rather than merely unknown.
				return ProbeResult{Type: FSMBR, BaseLBA: part.BaseLBA, PartitionType: part.Type}, nil
			}
			result.PartitionType = part.Type
			return result, err
		}
	}

	return ProbeResult{Type: FSUnknown}, nil
}

func hasBootSignature(sector0 []byte) bool {
	if len(sector0) < 512 {
		return false
	}
	return sector0[510] == 0x55 && sector0[511] == 0xAA
}
