// Package xvfs implements orionOS's native filesystem: a flat
// bitmap-allocated block store with single-directory-block layout.
package xvfs

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"

	kerrors "orionos/errors"
)

// Magic is the XVFS superblock's 32-bit identifier.
const Magic uint32 = 0x58564653

// Signature is the ASCII string sector 0 carries, followed by the
// 0x55AA boot-sector marker.
const Signature = "XVFS2"

// BlockSize is the fixed on-disk block size.
const BlockSize = 512

// DirEntrySize is the on-disk size of one DirEntry.
const DirEntrySize = 16 + 4 + 4 + 1 // name[16] + start_block + size + attr, packed

// AttrDir marks a directory entry (attr & 1).
const AttrDir = 1

// Superblock is the packed little-endian on-disk layout occupying
// sector 1.
type Superblock struct {
	Magic        uint32
	BlockSize    uint32
	TotalBlocks  uint32
	BitmapStart  uint32
	DataStart    uint32
	FreeBlocks   uint32
	RootDirBlock uint32
}

// DirEntry is one fixed-size slot of a directory block.
type DirEntry struct {
	Name       [16]byte
	StartBlock uint32
	Size       uint32
	Attr       uint8
}

// IsDir reports whether the entry names a subdirectory.
func (e DirEntry) IsDir() bool { return e.Attr&AttrDir != 0 }

// NameString returns Name trimmed at the first NUL byte.
func (e DirEntry) NameString() string {
	n := len(e.Name)
	for i, b := range e.Name {
		if b == 0 {
			n = i
			break
		}
	}
	return string(e.Name[:n])
}

// ParseSuperblock unpacks a 512-byte sector into a Superblock and
// validates the magic number.
func ParseSuperblock(sector []byte) (Superblock, error) {
	var sb Superblock
	if len(sector) < BlockSize {
		return sb, kerrors.New(kerrors.InvalidArgument, "xvfs.parsesuperblock", "short sector")
	}
	if err := restruct.Unpack(sector, binary.LittleEndian, &sb); err != nil {
		return sb, kerrors.Wrap(err, kerrors.Fault, "xvfs.parsesuperblock")
	}
	if sb.Magic != Magic {
		return sb, kerrors.New(kerrors.InvalidArgument, "xvfs.parsesuperblock", "bad magic")
	}
	return sb, nil
}

// MarshalSuperblock packs sb into a zero-padded 512-byte sector.
func MarshalSuperblock(sb Superblock) ([]byte, error) {
	raw, err := restruct.Pack(binary.LittleEndian, &sb)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Fault, "xvfs.marshalsuperblock")
	}
	out := make([]byte, BlockSize)
	copy(out, raw)
	return out, nil
}

// ParseDirBlock splits a directory block into its fixed-size entries,
// skipping unused (all-zero name) slots.
func ParseDirBlock(block []byte) ([]DirEntry, error) {
	var entries []DirEntry
	for off := 0; off+DirEntrySize <= len(block); off += DirEntrySize {
		var e DirEntry
		if err := restruct.Unpack(block[off:off+DirEntrySize], binary.LittleEndian, &e); err != nil {
			return nil, kerrors.Wrap(err, kerrors.Fault, "xvfs.parsedirblock")
		}
		if e.Name[0] == 0 {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// MarshalDirEntry packs a single DirEntry at its fixed on-disk size.
func MarshalDirEntry(e DirEntry) ([]byte, error) {
	raw, err := restruct.Pack(binary.LittleEndian, &e)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Fault, "xvfs.marshaldirentry")
	}
	return raw, nil
}

// HasSignature reports whether sector 0 carries the XVFS ASCII tag
// followed by the 0x55AA boot marker, per the quick-probe contract.
func HasSignature(sector0 []byte) bool {
	if len(sector0) < 512 {
		return false
	}
	if string(sector0[:len(Signature)]) != Signature {
		return false
	}
	return binary.LittleEndian.Uint16(sector0[510:512]) == 0xAA55
}
