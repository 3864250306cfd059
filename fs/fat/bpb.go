// Package fat implements enough of the Microsoft FAT16/FAT32 on-disk
// format for orionOS to mount, list and read files from a FAT volume,
// including VFAT long file names.
package fat

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"

	kerrors "orionos/errors"
)

// BPB is the common portion of the BIOS Parameter Block shared by
// FAT16 and FAT32. FAT32-only fields are parsed
// separately into BPB32.
type BPB struct {
	JumpBoot       [3]byte
	OEMName        [8]byte
	BytesPerSector uint16
	SectorsPerClus uint8
	ReservedSecs   uint16
	NumFATs        uint8
	RootEntCount   uint16
	TotalSecs16    uint16
	Media          uint8
	FATSize16      uint16
	SecsPerTrack   uint16
	NumHeads       uint16
	HiddenSecs     uint32
	TotalSecs32    uint32
}

// BPB32 carries the FAT32 extended fields that follow the common BPB.
type BPB32 struct {
	FATSize32       uint32
	ExtFlags        uint16
	FSVersion       uint16
	RootCluster     uint32
	FSInfoSector    uint16
	BackupBootSec   uint16
	Reserved        [12]byte
	DriveNumber     uint8
	Reserved1       uint8
	BootSignature   uint8
	VolumeID        uint32
	VolumeLabel     [11]byte
	FileSystemType  [8]byte
}

// Kind identifies which FAT variant a volume uses.
type Kind int

const (
	Unknown Kind = iota
	FAT16
	FAT32
)

func (k Kind) String() string {
	switch k {
	case FAT16:
		return "FAT16"
	case FAT32:
		return "FAT32"
	default:
		return "Unknown"
	}
}

// Volume bundles the common BPB with the parsed variant-specific tail.
type Volume struct {
	BPB
	Kind  Kind
	BPB32 BPB32 // zero value if Kind == FAT16
}

// DetectKind reads the filesystem-type ASCII tag the quick-probe looks
// for at offset 0x36 (FAT16 layout) or 0x52 (FAT32 layout) of sector 0.
func DetectKind(sector0 []byte) Kind {
	if len(sector0) < 0x5A {
		return Unknown
	}
	if hasFATTag(sector0[0x36:0x3E]) {
		return FAT16
	}
	if hasFATTag(sector0[0x52:0x5A]) {
		return FAT32
	}
	return Unknown
}

func hasFATTag(tag []byte) bool {
	s := string(tag)
	return s == "FAT16   " || s == "FAT32   " || s == "FAT     "
}

// ParseBPB unpacks the common BPB fields from sector 0.
func ParseBPB(sector0 []byte) (BPB, error) {
	var b BPB
	if len(sector0) < 36 {
		return b, kerrors.New(kerrors.InvalidArgument, "fat.parsebpb", "short sector")
	}
	if err := restruct.Unpack(sector0[:36], binary.LittleEndian, &b); err != nil {
		return b, kerrors.Wrap(err, kerrors.Fault, "fat.parsebpb")
	}
	return b, nil
}

// ParseBPB32 unpacks the FAT32 extended fields that immediately follow
// the common BPB (bytes 36..89 of sector 0).
func ParseBPB32(sector0 []byte) (BPB32, error) {
	var b32 BPB32
	if len(sector0) < 36+54 {
		return b32, kerrors.New(kerrors.InvalidArgument, "fat.parsebpb32", "short sector")
	}
	if err := restruct.Unpack(sector0[36:36+54], binary.LittleEndian, &b32); err != nil {
		return b32, kerrors.Wrap(err, kerrors.Fault, "fat.parsebpb32")
	}
	return b32, nil
}

// ParseVolume detects the FAT variant and parses the matching BPB
// layout from sector 0.
func ParseVolume(sector0 []byte) (Volume, error) {
	bpb, err := ParseBPB(sector0)
	if err != nil {
		return Volume{}, err
	}
	kind := DetectKind(sector0)
	v := Volume{BPB: bpb, Kind: kind}
	if kind == FAT32 {
		v.BPB32, err = ParseBPB32(sector0)
		if err != nil {
			return Volume{}, err
		}
	}
	return v, nil
}

// RootDirSectors is the number of sectors the FAT16 fixed root
// directory occupies; 0 for FAT32, whose root is a regular cluster
// chain.
func (v Volume) RootDirSectors() uint32 {
	if v.Kind == FAT32 {
		return 0
	}
	entSize := uint32(32)
	bps := uint32(v.BytesPerSector)
	n := uint32(v.RootEntCount)*entSize + bps - 1
	return n / bps
}

// FATSize returns the sectors-per-FAT value for whichever variant is
// in use.
func (v Volume) FATSize() uint32 {
	if v.Kind == FAT32 {
		return v.BPB32.FATSize32
	}
	return uint32(v.FATSize16)
}

// TotalSectors returns the volume's total sector count from whichever
// of TotalSecs16/TotalSecs32 is populated.
func (v Volume) TotalSectors() uint32 {
	if v.TotalSecs16 != 0 {
		return uint32(v.TotalSecs16)
	}
	return v.TotalSecs32
}

// FirstDataSector computes the LBA (relative to the volume base) of
// the first data cluster's sector.
func (v Volume) FirstDataSector() uint32 {
	return uint32(v.ReservedSecs) + uint32(v.NumFATs)*v.FATSize() + v.RootDirSectors()
}

// ClusterToSector converts a cluster number (>= 2) to its first
// relative sector.
func (v Volume) ClusterToSector(cluster uint32) uint32 {
	if cluster < 2 {
		return v.FirstDataSector()
	}
	return v.FirstDataSector() + (cluster-2)*uint32(v.SectorsPerClus)
}
