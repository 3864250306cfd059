// Package blockdev implements the block driver table: a fixed-size
// drive map resolving small integer drive ids to concrete backends,
// with bounds-checked absolute sector I/O.
package blockdev

import (
	"io"
	"os"

	kerrors "orionos/errors"
)

// SectorSize is the fixed sector size every backend exposes.
const SectorSize = 512

// BackendKind classifies the physical bus a backend models. The
// simulator has no real bus topology to distinguish AHCI/PATA/USB, so
// FileBackend stands in for all three; only Ramdisk has a distinct
// concrete type.
type BackendKind int

const (
	KindNone BackendKind = iota
	KindAHCI
	KindPATA
	KindUSB
	KindRamdisk
)

func (k BackendKind) String() string {
	switch k {
	case KindAHCI:
		return "ahci"
	case KindPATA:
		return "pata"
	case KindUSB:
		return "usb"
	case KindRamdisk:
		return "ramdisk"
	default:
		return "none"
	}
}

// Backend is the contract every physical or simulated block device
// implements. Read/Write operate on absolute LBAs; a count of 0 means
// 256 sectors (legacy 16-bit count wraparound).
type Backend interface {
	Present() bool
	Kind() BackendKind
	Model() string
	SectorCount() uint32
	ReadSectors(lba uint32, count uint16, buf []byte) error
	WriteSectors(lba uint32, count uint16, buf []byte) error
	Flush() error
}

func normalizeCount(count uint16) uint32 {
	if count == 0 {
		return 256
	}
	return uint32(count)
}

// FileBackend models an AHCI/PATA/USB disk image as a plain file.
type FileBackend struct {
	f     *os.File
	kind  BackendKind
	model string
	size  uint32 // in sectors
}

// NewFileBackend opens a disk image and derives its sector count from
// the file's length (truncated down to whole sectors).
func NewFileBackend(path string, kind BackendKind, model string) (*FileBackend, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, kerrors.WrapWithSubject(err, kerrors.NotFound, "blockdev.open", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, kerrors.WrapWithSubject(err, kerrors.Fault, "blockdev.stat", path)
	}
	return &FileBackend{
		f:     f,
		kind:  kind,
		model: model,
		size:  uint32(info.Size() / SectorSize),
	}, nil
}

func (b *FileBackend) Present() bool { return b.f != nil }
func (b *FileBackend) Kind() BackendKind { return b.kind }
func (b *FileBackend) Model() string { return b.model }
func (b *FileBackend) SectorCount() uint32 { return b.size }

func (b *FileBackend) ReadSectors(lba uint32, count uint16, buf []byte) error {
	n := normalizeCount(count)
	if lba+n > b.size || lba+n < lba {
		return kerrors.New(kerrors.Fault, "blockdev.read", "out of range")
	}
	need := int(n) * SectorSize
	if len(buf) < need {
		return kerrors.New(kerrors.InvalidArgument, "blockdev.read", "buffer too small")
	}
	if _, err := b.f.ReadAt(buf[:need], int64(lba)*SectorSize); err != nil && err != io.EOF {
		return kerrors.Wrap(err, kerrors.Fault, "blockdev.read")
	}
	return nil
}

func (b *FileBackend) WriteSectors(lba uint32, count uint16, buf []byte) error {
	n := normalizeCount(count)
	if lba+n > b.size || lba+n < lba {
		return kerrors.New(kerrors.Fault, "blockdev.write", "out of range")
	}
	need := int(n) * SectorSize
	if len(buf) < need {
		return kerrors.New(kerrors.InvalidArgument, "blockdev.write", "buffer too small")
	}
	if _, err := b.f.WriteAt(buf[:need], int64(lba)*SectorSize); err != nil {
		return kerrors.Wrap(err, kerrors.Fault, "blockdev.write")
	}
	return nil
}

func (b *FileBackend) Flush() error {
	if err := b.f.Sync(); err != nil {
		return kerrors.Wrap(err, kerrors.Fault, "blockdev.flush")
	}
	return nil
}

// Close releases the backing file. Not part of the Backend contract
// (real hardware has no such operation); used by test/teardown code.
func (b *FileBackend) Close() error {
	return b.f.Close()
}

// RamdiskBackend wraps an in-memory sector image, used for boot
// modules loaded by the Multiboot2 loader.
type RamdiskBackend struct {
	data  []byte
	model string
}

// NewRamdiskBackend wraps an existing byte slice (e.g. a Multiboot2
// module) as a ramdisk. The slice length is rounded down to whole
// sectors; data is used in place, not copied.
func NewRamdiskBackend(data []byte, model string) *RamdiskBackend {
	return &RamdiskBackend{data: data, model: model}
}

// NewEmptyRamdisk allocates a zero-filled ramdisk of the given sector
// count.
func NewEmptyRamdisk(sectors uint32, model string) *RamdiskBackend {
	return &RamdiskBackend{data: make([]byte, int(sectors)*SectorSize), model: model}
}

func (b *RamdiskBackend) Present() bool { return b.data != nil }
func (b *RamdiskBackend) Kind() BackendKind { return KindRamdisk }
func (b *RamdiskBackend) Model() string { return b.model }
func (b *RamdiskBackend) SectorCount() uint32 { return uint32(len(b.data) / SectorSize) }

func (b *RamdiskBackend) ReadSectors(lba uint32, count uint16, buf []byte) error {
	n := normalizeCount(count)
	sectors := b.SectorCount()
	if lba+n > sectors || lba+n < lba {
		return kerrors.New(kerrors.Fault, "blockdev.read", "out of range")
	}
	need := int(n) * SectorSize
	if len(buf) < need {
		return kerrors.New(kerrors.InvalidArgument, "blockdev.read", "buffer too small")
	}
	copy(buf[:need], b.data[int(lba)*SectorSize:int(lba)*SectorSize+need])
	return nil
}

func (b *RamdiskBackend) WriteSectors(lba uint32, count uint16, buf []byte) error {
	n := normalizeCount(count)
	sectors := b.SectorCount()
	if lba+n > sectors || lba+n < lba {
		return kerrors.New(kerrors.Fault, "blockdev.write", "out of range")
	}
	need := int(n) * SectorSize
	if len(buf) < need {
		return kerrors.New(kerrors.InvalidArgument, "blockdev.write", "buffer too small")
	}
	copy(b.data[int(lba)*SectorSize:int(lba)*SectorSize+need], buf[:need])
	return nil
}

func (b *RamdiskBackend) Flush() error { return nil }
