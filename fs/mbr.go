package fs

import "encoding/binary"

// MBRPartitionTableOffset is the byte offset of the four-entry MBR
// partition table within sector 0.
const MBRPartitionTableOffset = 0x1BE

// MBRPartitionEntrySize is the fixed size of one partition entry.
const MBRPartitionEntrySize = 16

// MBRPartition is one parsed partition table entry.
type MBRPartition struct {
	Bootable bool
	Type     uint8
	BaseLBA  uint32
	Sectors  uint32
}

// ParseMBRPartitions reads the four 16-byte partition entries from
// sector 0. Entries with a zero type byte are unused.
func ParseMBRPartitions(sector0 []byte) [4]MBRPartition {
	var parts [4]MBRPartition
	for i := 0; i < 4; i++ {
		off := MBRPartitionTableOffset + i*MBRPartitionEntrySize
		if off+MBRPartitionEntrySize > len(sector0) {
			continue
		}
		entry := sector0[off : off+MBRPartitionEntrySize]
		parts[i] = MBRPartition{
			Bootable: entry[0] == 0x80,
			Type:     entry[4],
			BaseLBA:  binary.LittleEndian.Uint32(entry[8:12]),
			Sectors:  binary.LittleEndian.Uint32(entry[12:16]),
		}
	}
	return parts
}

// FirstPartition returns the first non-zero-type partition entry, in
// table order, or ok=false if none exist.
func FirstPartition(parts [4]MBRPartition) (MBRPartition, bool) {
	for _, p := range parts {
		if p.Type != 0 {
			return p, true
		}
	}
	return MBRPartition{}, false
}
