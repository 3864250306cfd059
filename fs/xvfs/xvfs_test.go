package xvfs

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMarshalParseSuperblockRoundTrip(t *testing.T) {
	sb := Superblock{
		Magic:        Magic,
		BlockSize:    BlockSize,
		TotalBlocks:  1000,
		BitmapStart:  2,
		DataStart:    10,
		FreeBlocks:   500,
		RootDirBlock: 10,
	}
	raw, err := MarshalSuperblock(sb)
	if err != nil {
		t.Fatalf("MarshalSuperblock: %v", err)
	}
	if len(raw) != BlockSize {
		t.Fatalf("len(raw) = %d, want %d", len(raw), BlockSize)
	}
	got, err := ParseSuperblock(raw)
	if err != nil {
		t.Fatalf("ParseSuperblock: %v", err)
	}
	if diff := cmp.Diff(sb, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSuperblockRejectsBadMagic(t *testing.T) {
	raw := make([]byte, BlockSize)
	if _, err := ParseSuperblock(raw); err == nil {
		t.Fatal("expected error for zeroed (bad magic) sector")
	}
}

func TestHasSignature(t *testing.T) {
	sector := make([]byte, 512)
	copy(sector, Signature)
	binary.LittleEndian.PutUint16(sector[510:512], 0xAA55)
	if !HasSignature(sector) {
		t.Error("HasSignature() = false, want true")
	}

	sector[0] = 'X'
	sector[1] = 0
	if HasSignature(sector) {
		t.Error("HasSignature() = true for corrupted tag, want false")
	}
}

func TestParseDirBlockSkipsUnusedSlots(t *testing.T) {
	block := make([]byte, BlockSize)
	e := DirEntry{StartBlock: 5, Size: 512, Attr: AttrDir}
	copy(e.Name[:], "home")
	raw, _ := packEntry(e)
	copy(block[DirEntrySize:], raw) // slot 0 left unused (zero name)

	entries, err := ParseDirBlock(block)
	if err != nil {
		t.Fatalf("ParseDirBlock: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].NameString() != "home" || !entries[0].IsDir() {
		t.Errorf("entries[0] = %+v", entries[0])
	}
}

func packEntry(e DirEntry) ([]byte, error) {
	block := make([]byte, DirEntrySize)
	copy(block, e.Name[:])
	binary.LittleEndian.PutUint32(block[16:20], e.StartBlock)
	binary.LittleEndian.PutUint32(block[20:24], e.Size)
	block[24] = e.Attr
	return block, nil
}
