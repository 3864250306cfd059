package fs

import (
	"encoding/binary"
	"path"
	"strings"

	"orionos/blockdev"
	kerrors "orionos/errors"
	"orionos/fs/fat"

	"github.com/go-restruct/restruct"
)

// FATDriver mounts a FAT16 or FAT32 volume. It reads the whole FAT
// table into memory at mount time and flushes it back to disk after
// every structural change, the way a small embedded driver with no
// page cache would. Writes always create plain 8.3 short-name
// entries; no VFAT long-name generation is attempted (directory
// listing needs LFN decoding, nothing here needs to encode one).
type FATDriver struct {
	dt      *blockdev.DriveTable
	drive   int
	baseLBA uint32
	vol     fat.Volume
	fatTbl  []byte

	// allocHint is the cluster to resume scanning from on the next
	// allocation, avoiding an O(n) rescan of the volume's start on
	// every write. Pure performance cache: not persisted across
	// remounts, since AllocChainFrom always verifies a candidate
	// cluster is actually free before using it.
	allocHint uint32
}

// MountFAT parses the BPB at baseLBA and loads the volume's FAT table.
func MountFAT(dt *blockdev.DriveTable, drive int, baseLBA uint32) (*FATDriver, error) {
	sector0 := make([]byte, blockdev.SectorSize)
	if err := dt.ReadSectors(drive, baseLBA, 1, sector0); err != nil {
		return nil, err
	}
	vol, err := fat.ParseVolume(sector0)
	if err != nil {
		return nil, err
	}
	fatSectors := vol.FATSize()
	fatBytes := make([]byte, fatSectors*blockdev.SectorSize)
	if err := dt.ReadSectors(drive, baseLBA+uint32(vol.ReservedSecs), uint16(fatSectors), fatBytes); err != nil {
		return nil, err
	}
	return &FATDriver{dt: dt, drive: drive, baseLBA: baseLBA, vol: vol, fatTbl: fatBytes}, nil
}

// Type implements Driver.
func (d *FATDriver) Type() FSType {
	if d.vol.Kind == fat.FAT32 {
		return FSFAT32
	}
	return FSFAT16
}

func (d *FATDriver) totalClusters() uint32 {
	dataSectors := d.vol.TotalSectors() - d.vol.FirstDataSector()
	return dataSectors / uint32(d.vol.SectorsPerClus)
}

func (d *FATDriver) clusterBytes() uint32 {
	return uint32(d.vol.SectorsPerClus) * blockdev.SectorSize
}

func (d *FATDriver) readCluster(c uint32) ([]byte, error) {
	buf := make([]byte, d.clusterBytes())
	err := d.dt.ReadSectors(d.drive, d.baseLBA+d.vol.ClusterToSector(c), uint16(d.vol.SectorsPerClus), buf)
	return buf, err
}

func (d *FATDriver) writeCluster(c uint32, data []byte) error {
	buf := make([]byte, d.clusterBytes())
	copy(buf, data)
	return d.dt.WriteSectors(d.drive, d.baseLBA+d.vol.ClusterToSector(c), uint16(d.vol.SectorsPerClus), buf)
}

func (d *FATDriver) flushFAT() error {
	return d.dt.WriteSectors(d.drive, d.baseLBA+uint32(d.vol.ReservedSecs), uint16(len(d.fatTbl)/blockdev.SectorSize), d.fatTbl)
}

// dirRegion is a directory's contents read into one contiguous buffer,
// plus enough information to write it back: either a fixed sector
// range (FAT16 root) or a list of backing clusters.
type dirRegion struct {
	raw      []byte
	fixedLBA uint32 // valid when fixed
	fixed    bool
	clusters []uint32
}

func (d *FATDriver) readRoot() (dirRegion, error) {
	if d.vol.Kind == fat.FAT32 {
		return d.readClusterChain(d.vol.BPB32.RootCluster)
	}
	sectors := d.vol.RootDirSectors()
	lba := d.baseLBA + uint32(d.vol.ReservedSecs) + uint32(d.vol.NumFATs)*d.vol.FATSize()
	raw := make([]byte, sectors*blockdev.SectorSize)
	if err := d.dt.ReadSectors(d.drive, lba, uint16(sectors), raw); err != nil {
		return dirRegion{}, err
	}
	return dirRegion{raw: raw, fixed: true, fixedLBA: lba}, nil
}

func (d *FATDriver) readClusterChain(start uint32) (dirRegion, error) {
	chain := fat.ReadChain(d.fatTbl, d.vol.Kind, start)
	raw := make([]byte, 0, uint32(len(chain))*d.clusterBytes())
	for _, c := range chain {
		buf, err := d.readCluster(c)
		if err != nil {
			return dirRegion{}, err
		}
		raw = append(raw, buf...)
	}
	return dirRegion{raw: raw, clusters: chain}, nil
}

func (d *FATDriver) writeRegion(r dirRegion) error {
	if r.fixed {
		return d.dt.WriteSectors(d.drive, r.fixedLBA, uint16(len(r.raw)/blockdev.SectorSize), r.raw)
	}
	cb := d.clusterBytes()
	for i, c := range r.clusters {
		lo := uint32(i) * cb
		hi := lo + cb
		if hi > uint32(len(r.raw)) {
			hi = uint32(len(r.raw))
		}
		if err := d.writeCluster(c, r.raw[lo:hi]); err != nil {
			return err
		}
	}
	return nil
}

func splitFATPath(p string) []string {
	p = strings.Trim(path.Clean(p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func (d *FATDriver) resolveDir(p string) (dirRegion, error) {
	region, err := d.readRoot()
	if err != nil {
		return dirRegion{}, err
	}
	parts := splitFATPath(p)
	for _, part := range parts {
		entries, err := fat.IterateDir(region.raw)
		if err != nil {
			return dirRegion{}, err
		}
		found := false
		for _, e := range entries {
			if strings.EqualFold(e.Name, part) && e.IsDir {
				region, err = d.readClusterChain(e.Start)
				if err != nil {
					return dirRegion{}, err
				}
				found = true
				break
			}
		}
		if !found {
			return dirRegion{}, kerrors.New(kerrors.NotFound, "fat.resolvedir", "no such directory: "+part)
		}
	}
	return region, nil
}

// List implements Driver.
func (d *FATDriver) List(dirPath string) ([]Entry, error) {
	region, err := d.resolveDir(dirPath)
	if err != nil {
		return nil, err
	}
	entries, err := fat.IterateDir(region.raw)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{Name: e.Name, IsDir: e.IsDir, Size: e.Size})
	}
	return out, nil
}

func splitParent(p string) (string, string) {
	parts := splitFATPath(p)
	if len(parts) == 0 {
		return "/", ""
	}
	return "/" + strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1]
}

func (d *FATDriver) lookup(p string) (dirRegion, fat.Entry, error) {
	parentPath, name := splitParent(p)
	region, err := d.resolveDir(parentPath)
	if err != nil {
		return dirRegion{}, fat.Entry{}, err
	}
	entries, err := fat.IterateDir(region.raw)
	if err != nil {
		return dirRegion{}, fat.Entry{}, err
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name, name) {
			return region, e, nil
		}
	}
	return region, fat.Entry{}, kerrors.New(kerrors.NotFound, "fat.lookup", "no such file: "+name)
}

// ReadFile implements Driver.
func (d *FATDriver) ReadFile(filePath string) ([]byte, error) {
	_, e, err := d.lookup(filePath)
	if err != nil {
		return nil, err
	}
	if e.IsDir {
		return nil, kerrors.New(kerrors.InvalidArgument, "fat.readfile", "is a directory")
	}
	out := make([]byte, 0, e.Size)
	for _, c := range fat.ReadChain(d.fatTbl, d.vol.Kind, e.Start) {
		buf, err := d.readCluster(c)
		if err != nil {
			return nil, err
		}
		out = append(out, buf...)
		if uint32(len(out)) >= e.Size {
			break
		}
	}
	if uint32(len(out)) > e.Size {
		out = out[:e.Size]
	}
	return out, nil
}

// shortName83 derives an uppercase 8.3 short name from an arbitrary
// path component, truncating each part (no collision disambiguation).
func shortName83(name string) [11]byte {
	var out [11]byte
	for i := range out {
		out[i] = ' '
	}
	base, ext, _ := strings.Cut(strings.ToUpper(name), ".")
	for i := 0; i < len(base) && i < 8; i++ {
		out[i] = base[i]
	}
	for i := 0; i < len(ext) && i < 3; i++ {
		out[8+i] = ext[i]
	}
	return out
}

func packShortEntry(e fat.ShortEntry) ([]byte, error) {
	raw, err := restruct.Pack(binary.LittleEndian, &e)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Fault, "fat.packshortentry")
	}
	return raw, nil
}

// findFreeSlot returns the byte offset of the first deleted/unused
// 32-byte slot in raw, or -1 if none exists.
func findFreeSlot(raw []byte) int {
	for off := 0; off+fat.EntrySize <= len(raw); off += fat.EntrySize {
		if raw[off] == 0x00 || raw[off] == fat.DeletedMarker {
			return off
		}
	}
	return -1
}

func (d *FATDriver) growDirectory(region *dirRegion) error {
	if region.fixed {
		return kerrors.New(kerrors.OutOfMemory, "fat.growdirectory", "root directory is full")
	}
	var last uint32
	if len(region.clusters) > 0 {
		last = region.clusters[len(region.clusters)-1]
	}
	added, ok := fat.ExtendChain(d.fatTbl, d.vol.Kind, d.totalClusters(), last, 1)
	if !ok {
		return kerrors.New(kerrors.OutOfMemory, "fat.growdirectory", "no free clusters")
	}
	region.clusters = append(region.clusters, added...)
	region.raw = append(region.raw, make([]byte, d.clusterBytes())...)
	return d.flushFAT()
}

// WriteFile implements Driver: truncates and reallocates an existing
// file's cluster chain, or creates a new 8.3 entry.
func (d *FATDriver) WriteFile(filePath string, data []byte, progress func(written, total int)) error {
	parentPath, name := splitParent(filePath)
	region, err := d.resolveDir(parentPath)
	if err != nil {
		return err
	}
	entries, err := fat.IterateDir(region.raw)
	if err != nil {
		return err
	}

	needed := 0
	if len(data) > 0 {
		needed = (len(data) + int(d.clusterBytes()) - 1) / int(d.clusterBytes())
	}

	var shortBytes [11]byte
	slotOffset := -1
	for _, e := range entries {
		if strings.EqualFold(e.Name, name) {
			if e.IsDir {
				return kerrors.New(kerrors.InvalidArgument, "fat.writefile", "is a directory")
			}
			fat.FreeChain(d.fatTbl, d.vol.Kind, e.Start)
			slotOffset = e.Offset
			copy(shortBytes[:], region.raw[e.Offset:e.Offset+11])
			break
		}
	}
	if slotOffset < 0 {
		shortBytes = shortName83(name)
		slotOffset = findFreeSlot(region.raw)
		for slotOffset < 0 {
			if err := d.growDirectory(&region); err != nil {
				return err
			}
			slotOffset = findFreeSlot(region.raw)
		}
	}

	var chain []uint32
	if needed > 0 {
		var ok bool
		chain, ok = fat.AllocChainFrom(d.fatTbl, d.vol.Kind, d.totalClusters(), d.allocHint, needed)
		if !ok {
			return kerrors.New(kerrors.OutOfMemory, "fat.writefile", "not enough free clusters")
		}
		d.allocHint = chain[len(chain)-1] + 1
	}

	written := 0
	cb := int(d.clusterBytes())
	for i, c := range chain {
		lo := i * cb
		hi := lo + cb
		if hi > len(data) {
			hi = len(data)
		}
		if err := d.writeCluster(c, data[lo:hi]); err != nil {
			return err
		}
		written = hi
		if progress != nil {
			progress(written, len(data))
		}
	}

	var startCluster uint32
	if len(chain) > 0 {
		startCluster = chain[0]
	}
	entry := fat.ShortEntry{
		FstClusHI: uint16(startCluster >> 16),
		FstClusLO: uint16(startCluster),
		FileSize:  uint32(len(data)),
	}
	copy(entry.Name[:], shortBytes[:])
	raw, err := packShortEntry(entry)
	if err != nil {
		return err
	}
	copy(region.raw[slotOffset:slotOffset+fat.EntrySize], raw)
	if err := d.flushFAT(); err != nil {
		return err
	}
	return d.writeRegion(region)
}

// Mkdir implements Driver: allocates a single zeroed cluster for the
// new directory's contents and links an 8.3 entry for it.
func (d *FATDriver) Mkdir(dirPath string) error {
	parentPath, name := splitParent(dirPath)
	region, err := d.resolveDir(parentPath)
	if err != nil {
		return err
	}
	entries, err := fat.IterateDir(region.raw)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name, name) {
			return kerrors.New(kerrors.InvalidArgument, "fat.mkdir", "already exists")
		}
	}

	chain, ok := fat.AllocChainFrom(d.fatTbl, d.vol.Kind, d.totalClusters(), d.allocHint, 1)
	if !ok {
		return kerrors.New(kerrors.OutOfMemory, "fat.mkdir", "no free clusters")
	}
	d.allocHint = chain[len(chain)-1] + 1
	if err := d.writeCluster(chain[0], nil); err != nil {
		return err
	}

	slotOffset := findFreeSlot(region.raw)
	for slotOffset < 0 {
		if err := d.growDirectory(&region); err != nil {
			return err
		}
		slotOffset = findFreeSlot(region.raw)
	}
	entry := fat.ShortEntry{
		Attr:      fat.AttrDir,
		FstClusHI: uint16(chain[0] >> 16),
		FstClusLO: uint16(chain[0]),
	}
	entry.Name = shortName83(name)
	raw, err := packShortEntry(entry)
	if err != nil {
		return err
	}
	copy(region.raw[slotOffset:slotOffset+fat.EntrySize], raw)
	if err := d.flushFAT(); err != nil {
		return err
	}
	return d.writeRegion(region)
}

// Remove implements Driver: frees the entry's cluster chain and marks
// its slot (and any immediately preceding orphaned LFN slots) deleted.
func (d *FATDriver) Remove(targetPath string) error {
	parentPath, name := splitParent(targetPath)
	region, err := d.resolveDir(parentPath)
	if err != nil {
		return err
	}
	entries, err := fat.IterateDir(region.raw)
	if err != nil {
		return err
	}
	var target *fat.Entry
	for i := range entries {
		if strings.EqualFold(entries[i].Name, name) {
			target = &entries[i]
			break
		}
	}
	if target == nil {
		return kerrors.New(kerrors.NotFound, "fat.remove", "no such file: "+name)
	}
	if target.IsDir {
		sub, err := d.readClusterChain(target.Start)
		if err != nil {
			return err
		}
		children, err := fat.IterateDir(sub.raw)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return kerrors.New(kerrors.InvalidArgument, "fat.remove", "directory not empty")
		}
	}
	fat.FreeChain(d.fatTbl, d.vol.Kind, target.Start)

	region.raw[target.Offset] = fat.DeletedMarker
	for p := target.Offset - fat.EntrySize; p >= 0; p -= fat.EntrySize {
		se, err := fat.ParseShortEntry(region.raw[p : p+fat.EntrySize])
		if err != nil || !se.IsLongName() {
			break
		}
		region.raw[p] = fat.DeletedMarker
	}

	if err := d.flushFAT(); err != nil {
		return err
	}
	return d.writeRegion(region)
}
