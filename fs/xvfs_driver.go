package fs

import (
	"path"
	"strings"

	"orionos/blockdev"
	kerrors "orionos/errors"
	"orionos/fs/xvfs"
)

// xvfsSectorsPerBlock is fixed since both XVFS and the block layer use
// 512-byte units.
const xvfsSectorsPerBlock = xvfs.BlockSize / blockdev.SectorSize

// XVFSDriver mounts a native XVFS volume: a bitmap-allocated block
// store where every directory (root or subdirectory) occupies exactly
// one directory block, walked by path component.
type XVFSDriver struct {
	dt      *blockdev.DriveTable
	drive   int
	baseLBA uint32
	sb      xvfs.Superblock
	bitmap  []byte
}

// MountXVFS reads the superblock (sector baseLBA+1) and bitmap off dt
// and returns a driver ready to serve filesystem operations.
func MountXVFS(dt *blockdev.DriveTable, drive int, baseLBA uint32) (*XVFSDriver, error) {
	sector := make([]byte, blockdev.SectorSize)
	if err := dt.ReadSectors(drive, baseLBA+1, 1, sector); err != nil {
		return nil, err
	}
	sb, err := xvfs.ParseSuperblock(sector)
	if err != nil {
		return nil, err
	}
	dataBlocks := sb.TotalBlocks - sb.DataStart
	bitmapBlocks := (xvfs.BitmapBytes(dataBlocks) + xvfs.BlockSize - 1) / xvfs.BlockSize
	bitmap := make([]byte, bitmapBlocks*xvfs.BlockSize)
	if bitmapBlocks > 0 {
		if err := dt.ReadSectors(drive, baseLBA+sb.BitmapStart*xvfsSectorsPerBlock, uint16(bitmapBlocks*xvfsSectorsPerBlock), bitmap); err != nil {
			return nil, err
		}
	}
	return &XVFSDriver{dt: dt, drive: drive, baseLBA: baseLBA, sb: sb, bitmap: bitmap}, nil
}

// Type implements Driver.
func (d *XVFSDriver) Type() FSType { return FSXVFS }

func (d *XVFSDriver) readBlock(block uint32) ([]byte, error) {
	buf := make([]byte, xvfs.BlockSize)
	err := d.dt.ReadSectors(d.drive, d.baseLBA+block*xvfsSectorsPerBlock, xvfsSectorsPerBlock, buf)
	return buf, err
}

func (d *XVFSDriver) writeBlock(block uint32, data []byte) error {
	buf := make([]byte, xvfs.BlockSize)
	copy(buf, data)
	return d.dt.WriteSectors(d.drive, d.baseLBA+block*xvfsSectorsPerBlock, xvfsSectorsPerBlock, buf)
}

func (d *XVFSDriver) writeSuperblock() error {
	raw, err := xvfs.MarshalSuperblock(d.sb)
	if err != nil {
		return err
	}
	return d.dt.WriteSectors(d.drive, d.baseLBA+1, 1, raw)
}

func (d *XVFSDriver) writeBitmap() error {
	return d.dt.WriteSectors(d.drive, d.baseLBA+d.sb.BitmapStart*xvfsSectorsPerBlock, uint16(len(d.bitmap)/blockdev.SectorSize), d.bitmap)
}

func splitPath(p string) []string {
	p = strings.Trim(path.Clean(p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// resolve walks from the root directory block to the parent of the
// final path component, returning the parent's block and that
// component's name (empty name/err==nil means "the root itself").
func (d *XVFSDriver) resolve(p string) (parentBlock uint32, name string, err error) {
	parts := splitPath(p)
	if len(parts) == 0 {
		return d.sb.RootDirBlock, "", nil
	}
	block := d.sb.RootDirBlock
	for _, part := range parts[:len(parts)-1] {
		entries, rerr := d.readDir(block)
		if rerr != nil {
			return 0, "", rerr
		}
		found := false
		for _, e := range entries {
			if e.NameString() == part && e.IsDir() {
				block = e.StartBlock
				found = true
				break
			}
		}
		if !found {
			return 0, "", kerrors.New(kerrors.NotFound, "xvfs.resolve", "no such directory: "+part)
		}
	}
	return block, parts[len(parts)-1], nil
}

func (d *XVFSDriver) readDir(block uint32) ([]xvfs.DirEntry, error) {
	raw, err := d.readBlock(block)
	if err != nil {
		return nil, err
	}
	return xvfs.ParseDirBlock(raw)
}

func (d *XVFSDriver) findEntry(block uint32, name string) (xvfs.DirEntry, int, error) {
	raw, err := d.readBlock(block)
	if err != nil {
		return xvfs.DirEntry{}, -1, err
	}
	entries, err := xvfs.ParseDirBlock(raw)
	if err != nil {
		return xvfs.DirEntry{}, -1, err
	}
	for i, e := range entries {
		if e.NameString() == name {
			return e, i, nil
		}
	}
	return xvfs.DirEntry{}, -1, kerrors.New(kerrors.NotFound, "xvfs.findentry", "no such file: "+name)
}

// List implements Driver.
func (d *XVFSDriver) List(dirPath string) ([]Entry, error) {
	block := d.sb.RootDirBlock
	if parts := splitPath(dirPath); len(parts) > 0 {
		pb, name, err := d.resolve(dirPath)
		if err != nil {
			return nil, err
		}
		e, _, err := d.findEntry(pb, name)
		if err != nil {
			return nil, err
		}
		if !e.IsDir() {
			return nil, kerrors.New(kerrors.InvalidArgument, "xvfs.list", "not a directory")
		}
		block = e.StartBlock
	}
	entries, err := d.readDir(block)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{Name: e.NameString(), IsDir: e.IsDir(), Size: e.Size})
	}
	return out, nil
}

// ReadFile implements Driver.
func (d *XVFSDriver) ReadFile(filePath string) ([]byte, error) {
	pb, name, err := d.resolve(filePath)
	if err != nil {
		return nil, err
	}
	e, _, err := d.findEntry(pb, name)
	if err != nil {
		return nil, err
	}
	if e.IsDir() {
		return nil, kerrors.New(kerrors.InvalidArgument, "xvfs.readfile", "is a directory")
	}
	blocks := (e.Size + xvfs.BlockSize - 1) / xvfs.BlockSize
	out := make([]byte, 0, blocks*xvfs.BlockSize)
	for b := uint32(0); b < blocks; b++ {
		raw, err := d.readBlock(e.StartBlock + b)
		if err != nil {
			return nil, err
		}
		out = append(out, raw...)
	}
	return out[:e.Size], nil
}

func (d *XVFSDriver) writeDirEntries(block uint32, entries []xvfs.DirEntry) error {
	buf := make([]byte, xvfs.BlockSize)
	off := 0
	for _, e := range entries {
		raw, err := xvfs.MarshalDirEntry(e)
		if err != nil {
			return err
		}
		if off+len(raw) > len(buf) {
			return kerrors.New(kerrors.OutOfMemory, "xvfs.writedir", "directory block full")
		}
		copy(buf[off:], raw)
		off += len(raw)
	}
	return d.writeBlock(block, buf)
}

// WriteFile implements Driver. Existing files are truncated and
// reallocated as a fresh contiguous run; new files are appended as a
// new directory slot.
func (d *XVFSDriver) WriteFile(filePath string, data []byte, progress func(written, total int)) error {
	pb, name, err := d.resolve(filePath)
	if err != nil {
		return err
	}
	entries, err := d.readDir(pb)
	if err != nil {
		return err
	}

	needed := uint32((len(data) + xvfs.BlockSize - 1) / xvfs.BlockSize)
	dataBlocks := d.sb.TotalBlocks - d.sb.DataStart

	slot := -1
	for i, e := range entries {
		if e.NameString() == name {
			if e.IsDir() {
				return kerrors.New(kerrors.InvalidArgument, "xvfs.writefile", "is a directory")
			}
			oldBlocks := (e.Size + xvfs.BlockSize - 1) / xvfs.BlockSize
			xvfs.MarkRun(d.bitmap, e.StartBlock-d.sb.DataStart, oldBlocks, false)
			slot = i
			break
		}
	}

	start, ok := xvfs.FindFreeRun(d.bitmap, dataBlocks, needed)
	if !ok {
		return kerrors.New(kerrors.OutOfMemory, "xvfs.writefile", "not enough free blocks")
	}
	xvfs.MarkRun(d.bitmap, start, needed, true)
	startBlock := d.sb.DataStart + start

	written := 0
	for b := uint32(0); b < needed; b++ {
		lo := int(b) * xvfs.BlockSize
		hi := lo + xvfs.BlockSize
		if hi > len(data) {
			hi = len(data)
		}
		if err := d.writeBlock(startBlock+b, data[lo:hi]); err != nil {
			return err
		}
		written = hi
		if progress != nil {
			progress(written, len(data))
		}
	}

	newEntry := xvfs.DirEntry{StartBlock: startBlock, Size: uint32(len(data))}
	copy(newEntry.Name[:], name)
	if slot >= 0 {
		entries[slot] = newEntry
	} else {
		entries = append(entries, newEntry)
	}

	if err := d.writeDirEntries(pb, entries); err != nil {
		return err
	}
	d.sb.FreeBlocks = xvfs.CountFree(d.bitmap, dataBlocks)
	if err := d.writeBitmap(); err != nil {
		return err
	}
	return d.writeSuperblock()
}

// Mkdir implements Driver: allocates a fresh one-block directory and
// links it into its parent.
func (d *XVFSDriver) Mkdir(dirPath string) error {
	pb, name, err := d.resolve(dirPath)
	if err != nil {
		return err
	}
	entries, err := d.readDir(pb)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.NameString() == name {
			return kerrors.New(kerrors.InvalidArgument, "xvfs.mkdir", "already exists")
		}
	}

	dataBlocks := d.sb.TotalBlocks - d.sb.DataStart
	start, ok := xvfs.FindFreeRun(d.bitmap, dataBlocks, 1)
	if !ok {
		return kerrors.New(kerrors.OutOfMemory, "xvfs.mkdir", "no free blocks")
	}
	xvfs.MarkRun(d.bitmap, start, 1, true)
	block := d.sb.DataStart + start

	if err := d.writeBlock(block, nil); err != nil {
		return err
	}

	newEntry := xvfs.DirEntry{StartBlock: block, Attr: xvfs.AttrDir}
	copy(newEntry.Name[:], name)
	entries = append(entries, newEntry)
	if err := d.writeDirEntries(pb, entries); err != nil {
		return err
	}
	d.sb.FreeBlocks = xvfs.CountFree(d.bitmap, dataBlocks)
	if err := d.writeBitmap(); err != nil {
		return err
	}
	return d.writeSuperblock()
}

// Remove implements Driver: frees the entry's blocks and drops its
// directory slot. Non-empty directories are rejected.
func (d *XVFSDriver) Remove(targetPath string) error {
	pb, name, err := d.resolve(targetPath)
	if err != nil {
		return err
	}
	entries, err := d.readDir(pb)
	if err != nil {
		return err
	}
	idx := -1
	for i, e := range entries {
		if e.NameString() == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return kerrors.New(kerrors.NotFound, "xvfs.remove", "no such file: "+name)
	}
	target := entries[idx]
	if target.IsDir() {
		children, err := d.readDir(target.StartBlock)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return kerrors.New(kerrors.InvalidArgument, "xvfs.remove", "directory not empty")
		}
		xvfs.MarkRun(d.bitmap, target.StartBlock-d.sb.DataStart, 1, false)
	} else {
		blocks := (target.Size + xvfs.BlockSize - 1) / xvfs.BlockSize
		xvfs.MarkRun(d.bitmap, target.StartBlock-d.sb.DataStart, blocks, false)
	}

	entries = append(entries[:idx], entries[idx+1:]...)
	if err := d.writeDirEntries(pb, entries); err != nil {
		return err
	}
	dataBlocks := d.sb.TotalBlocks - d.sb.DataStart
	d.sb.FreeBlocks = xvfs.CountFree(d.bitmap, dataBlocks)
	if err := d.writeBitmap(); err != nil {
		return err
	}
	return d.writeSuperblock()
}
