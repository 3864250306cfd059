package fs

import (
	"encoding/binary"
	"testing"
)

func TestParseMBRPartitions(t *testing.T) {
	sector := make([]byte, 512)
	off := MBRPartitionTableOffset
	sector[off] = 0x80 // bootable
	sector[off+4] = 0x0C
	binary.LittleEndian.PutUint32(sector[off+8:off+12], 2048)
	binary.LittleEndian.PutUint32(sector[off+12:off+16], 1000000)

	parts := ParseMBRPartitions(sector)
	if !parts[0].Bootable || parts[0].Type != 0x0C || parts[0].BaseLBA != 2048 {
		t.Errorf("parts[0] = %+v", parts[0])
	}
	if parts[1].Type != 0 {
		t.Errorf("parts[1] should be unused, got %+v", parts[1])
	}
}

func TestFirstPartitionSkipsUnused(t *testing.T) {
	parts := [4]MBRPartition{
		{Type: 0},
		{Type: 0x0C, BaseLBA: 4096},
		{Type: 0x07},
	}
	p, ok := FirstPartition(parts)
	if !ok || p.BaseLBA != 4096 {
		t.Errorf("FirstPartition() = %+v, %v", p, ok)
	}
}

func TestFirstPartitionNoneFound(t *testing.T) {
	var parts [4]MBRPartition
	if _, ok := FirstPartition(parts); ok {
		t.Error("FirstPartition() = ok, want not found")
	}
}
