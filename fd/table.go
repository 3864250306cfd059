// Package fd implements orionOS's open-file-descriptor table: a fixed
// array of small-integer-indexed slots, each owned by exactly one pid,
// carrying a path, a byte offset, and a cached size. "console" is the
// distinguished path that bypasses the filesystem entirely and is
// serviced directly against the terminal.
package fd

import (
	"sync"

	kerrors "orionos/errors"
)

// MaxDescriptors is the fixed descriptor-table size.
const MaxDescriptors = 32

// ConsolePath is the distinguished path name that bypasses the
// filesystem and reads/writes the screen.
const ConsolePath = "console"

// Slot is one open-file descriptor.
type Slot struct {
	Used     bool
	OwnerPID int32
	Path     string
	Offset   int
	Size     int
	Data     []byte
	Dirty    bool
	Console  bool
}

// Table is the fixed descriptor array.
type Table struct {
	mu    sync.Mutex
	slots [MaxDescriptors]Slot
}

// NewTable returns an empty descriptor table.
func NewTable() *Table {
	return &Table{}
}

// Open allocates the first free slot for path, owned by pid. data
// seeds the slot's cached contents (nil for console, which has no
// file-backed contents to cache).
func (t *Table) Open(pid int32, path string, data []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if t.slots[i].Used {
			continue
		}
		buf := append([]byte(nil), data...)
		t.slots[i] = Slot{
			Used:     true,
			OwnerPID: pid,
			Path:     path,
			Size:     len(buf),
			Data:     buf,
			Console:  path == ConsolePath,
		}
		return i, nil
	}
	return -1, kerrors.New(kerrors.OutOfMemory, "fd.open", "descriptor table full")
}

// Get returns a copy of fdNum's slot.
func (t *Table) Get(fdNum int) (Slot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fdNum < 0 || fdNum >= MaxDescriptors || !t.slots[fdNum].Used {
		return Slot{}, false
	}
	return t.slots[fdNum], true
}

// Read copies up to max bytes from the slot's cached data at its
// current offset and advances the offset. A read at or past end of
// data returns a nil, non-error slice (EOF).
func (t *Table) Read(fdNum int, max int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fdNum < 0 || fdNum >= MaxDescriptors || !t.slots[fdNum].Used {
		return nil, kerrors.New(kerrors.InvalidArgument, "fd.read", "bad descriptor")
	}
	s := &t.slots[fdNum]
	if max < 0 || s.Offset >= len(s.Data) {
		return nil, nil
	}
	end := s.Offset + max
	if end > len(s.Data) {
		end = len(s.Data)
	}
	out := append([]byte(nil), s.Data[s.Offset:end]...)
	s.Offset = end
	return out, nil
}

// Write overwrites/extends the slot's cached data at its current
// offset, growing the buffer as needed, marks the slot dirty, and
// advances the offset. Flushing a dirty slot to the backing
// filesystem is the caller's responsibility, done on Close; the block
// layer has no write-back cache to catch unflushed data.
func (t *Table) Write(fdNum int, data []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fdNum < 0 || fdNum >= MaxDescriptors || !t.slots[fdNum].Used {
		return 0, kerrors.New(kerrors.InvalidArgument, "fd.write", "bad descriptor")
	}
	s := &t.slots[fdNum]
	end := s.Offset + len(data)
	if end > len(s.Data) {
		grown := make([]byte, end)
		copy(grown, s.Data)
		s.Data = grown
	}
	copy(s.Data[s.Offset:end], data)
	s.Offset = end
	s.Size = len(s.Data)
	s.Dirty = true
	return len(data), nil
}

// Close frees fdNum and returns its final state, so the caller can
// flush a dirty non-console slot before discarding it.
func (t *Table) Close(fdNum int) (Slot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fdNum < 0 || fdNum >= MaxDescriptors || !t.slots[fdNum].Used {
		return Slot{}, kerrors.New(kerrors.InvalidArgument, "fd.close", "bad descriptor")
	}
	s := t.slots[fdNum]
	t.slots[fdNum] = Slot{}
	return s, nil
}

// ReleaseOwnedBy frees every descriptor owned by pid without
// flushing, the process-exit cleanup path: "process exit releases all
// descriptors owned by that pid".
func (t *Table) ReleaseOwnedBy(pid int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if t.slots[i].Used && t.slots[i].OwnerPID == pid {
			t.slots[i] = Slot{}
		}
	}
}
