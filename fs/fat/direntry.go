package fat

import (
	"encoding/binary"
	"strings"

	"github.com/go-restruct/restruct"

	kerrors "orionos/errors"
)

// EntrySize is the fixed size of one 8.3 or LFN directory entry.
const EntrySize = 32

// AttrReadOnly through AttrLongName mirror the FAT attribute byte bits.
const (
	AttrReadOnly = 0x01
	AttrHidden   = 0x02
	AttrSystem   = 0x04
	AttrVolumeID = 0x08
	AttrDir      = 0x10
	AttrArchive  = 0x20
	AttrLongName = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

// DeletedMarker is the 0xE5 byte that marks a slot as free. The FAT
// driver (fs.FATDriver) treats such a slot, like one whose first byte
// is 0x00, as reusable; fs.Dispatcher does not inspect it.
const DeletedMarker = 0xE5

// ShortEntry is the packed 32-byte 8.3 directory entry.
type ShortEntry struct {
	Name         [11]byte
	Attr         uint8
	NTRes        uint8
	CrtTimeTenth uint8
	CrtTime      uint16
	CrtDate      uint16
	LastAccDate  uint16
	FstClusHI    uint16
	WrtTime      uint16
	WrtDate      uint16
	FstClusLO    uint16
	FileSize     uint32
}

// LongEntry is the packed 32-byte VFAT long-file-name entry. Name
// characters are UCS-2, split across three runs of 5/6/2 characters.
type LongEntry struct {
	Ord       uint8
	Name1     [10]byte // 5 UCS-2 chars
	Attr      uint8
	Type      uint8
	Checksum  uint8
	Name2     [12]byte // 6 UCS-2 chars
	FstClusLO uint16
	Name3     [4]byte // 2 UCS-2 chars
}

// LastLongEntryMask marks the final (first-encountered, since LFN
// entries precede their short entry in reverse order) LFN slot.
const LastLongEntryMask = 0x40

// IsLongName reports whether attr marks a VFAT long-name entry.
func (e ShortEntry) IsLongName() bool { return e.Attr&AttrLongName == AttrLongName }

// IsDir reports whether the short entry names a directory.
func (e ShortEntry) IsDir() bool { return e.Attr&AttrDir != 0 }

// IsFree reports whether the slot is unused (0x00, end of directory)
// or deleted (0xE5).
func (e ShortEntry) IsFree() bool {
	return e.Name[0] == 0x00 || e.Name[0] == DeletedMarker
}

// IsEnd reports whether this slot and all following ones are unused.
func (e ShortEntry) IsEnd() bool { return e.Name[0] == 0x00 }

// Cluster returns the starting cluster number, combining the high and
// low 16-bit halves (FAT32 only uses the high half; FAT16 leaves it
// zero).
func (e ShortEntry) Cluster() uint32 {
	return uint32(e.FstClusHI)<<16 | uint32(e.FstClusLO)
}

// ShortName reconstructs the displayable 8.3 name ("NAME.EXT") from
// the fixed 11-byte field, trimming trailing spaces in each part.
func (e ShortEntry) ShortName() string {
	base := strings.TrimRight(string(e.Name[0:8]), " ")
	ext := strings.TrimRight(string(e.Name[8:11]), " ")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// ParseShortEntry unpacks one 32-byte slot as a ShortEntry.
func ParseShortEntry(raw []byte) (ShortEntry, error) {
	var e ShortEntry
	if len(raw) < EntrySize {
		return e, kerrors.New(kerrors.InvalidArgument, "fat.parseshortentry", "short slot")
	}
	if err := restruct.Unpack(raw[:EntrySize], binary.LittleEndian, &e); err != nil {
		return e, kerrors.Wrap(err, kerrors.Fault, "fat.parseshortentry")
	}
	return e, nil
}

// ParseLongEntry unpacks one 32-byte slot as a LongEntry.
func ParseLongEntry(raw []byte) (LongEntry, error) {
	var e LongEntry
	if len(raw) < EntrySize {
		return e, kerrors.New(kerrors.InvalidArgument, "fat.parselongentry", "short slot")
	}
	if err := restruct.Unpack(raw[:EntrySize], binary.LittleEndian, &e); err != nil {
		return e, kerrors.Wrap(err, kerrors.Fault, "fat.parselongentry")
	}
	return e, nil
}

// ucs2Chars decodes a byte run of 2-byte UCS-2 code units, stopping at
// a 0xFFFF pad or 0x0000 terminator.
func ucs2Chars(run []byte) []rune {
	var out []rune
	for i := 0; i+1 < len(run); i += 2 {
		u := binary.LittleEndian.Uint16(run[i : i+2])
		if u == 0x0000 || u == 0xFFFF {
			break
		}
		out = append(out, rune(u))
	}
	return out
}

// Chars returns the up-to-13 UCS-2 characters this LFN slot carries,
// in on-disk order.
func (e LongEntry) Chars() []rune {
	var out []rune
	out = append(out, ucs2Chars(e.Name1[:])...)
	if len(out) == 5 {
		out = append(out, ucs2Chars(e.Name2[:])...)
	}
	if len(out) == 11 {
		out = append(out, ucs2Chars(e.Name3[:])...)
	}
	return out
}

// IsLast reports whether this is the first LFN slot encountered for a
// name (the "last" logical sequence number, per the 0x40 ordinal bit).
func (e LongEntry) IsLast() bool { return e.Ord&LastLongEntryMask != 0 }

// Sequence returns the 1-based ordinal within the LFN chain.
func (e LongEntry) Sequence() int { return int(e.Ord &^ LastLongEntryMask) }

// ShortNameChecksum computes the VFAT checksum of an 11-byte 8.3 name,
// used to validate that a chain of LFN entries belongs to the short
// entry immediately following it.
func ShortNameChecksum(name11 [11]byte) uint8 {
	var sum uint8
	for _, c := range name11 {
		sum = (sum>>1 | sum<<7) + c
	}
	return sum
}

// AssembleLongName joins a chain of LFN entries, ordered lowest
// ordinal first, into the full long file name.
func AssembleLongName(entries []LongEntry) string {
	var runes []rune
	for _, e := range entries {
		runes = append(runes, e.Chars()...)
	}
	return string(runes)
}

// Entry is the uniform (name, is_dir) record the GUI explorer and the
// shell's `fl` consume, produced by both the FAT and XVFS directory
// iterators.
type Entry struct {
	Name   string
	IsDir  bool
	Size   uint32
	Start  uint32
	Offset int // byte offset of the short entry's 32-byte slot within the scanned buffer
}

// IterateDir walks one directory's worth of 32-byte slots (already
// read into memory by the caller), assembling VFAT long names where
// present and falling back to the 8.3 short name otherwise.
func IterateDir(block []byte) ([]Entry, error) {
	var entries []Entry
	var pendingLFN []LongEntry

	for off := 0; off+EntrySize <= len(block); off += EntrySize {
		raw := block[off : off+EntrySize]
		short, err := ParseShortEntry(raw)
		if err != nil {
			return nil, err
		}
		if short.IsEnd() {
			break
		}
		if short.IsFree() {
			pendingLFN = nil
			continue
		}
		if short.IsLongName() {
			long, err := ParseLongEntry(raw)
			if err != nil {
				return nil, err
			}
			pendingLFN = append(pendingLFN, long)
			continue
		}
		if short.Attr&AttrVolumeID != 0 {
			pendingLFN = nil
			continue
		}

		name := short.ShortName()
		if len(pendingLFN) > 0 {
			// LFN slots precede their short entry in reverse sequence
			// order; reverse to restore character order.
			ordered := make([]LongEntry, len(pendingLFN))
			for i, e := range pendingLFN {
				ordered[len(pendingLFN)-1-i] = e
			}
			if ShortNameChecksum(short.Name) == ordered[0].Checksum {
				name = AssembleLongName(ordered)
			}
		}
		pendingLFN = nil

		entries = append(entries, Entry{
			Name:   name,
			IsDir:  short.IsDir(),
			Size:   short.FileSize,
			Start:  short.Cluster(),
			Offset: off,
		})
	}
	return entries, nil
}
