package fs

import (
	"fmt"
	"path"
	"strings"
	"sync"

	kerrors "orionos/errors"
	"orionos/logging"
)

// Entry is the uniform (name, is_dir) record both the FAT and XVFS
// directory iterators produce.
type Entry struct {
	Name  string
	IsDir bool
	Size  uint32
}

// Driver is the contract a mounted filesystem implements. Dispatcher
// forwards every filesystem syscall through whichever Driver matches
// current_fs.
type Driver interface {
	Type() FSType
	List(dir string) ([]Entry, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, progress func(written, total int)) error
	Mkdir(path string) error
	Remove(path string) error
}

// Dispatcher tracks the single active mount (current_fs, current_drive,
// current_path) and forwards filesystem operations to the matching
// driver.
type Dispatcher struct {
	mu      sync.Mutex
	driver  Driver
	drive   int
	curPath string
}

// NewDispatcher returns a Dispatcher with no active mount.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{curPath: "/"}
}

// Mount activates driver as the current filesystem on the given drive.
func (d *Dispatcher) Mount(driver Driver, drive int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.driver = driver
	d.drive = drive
	d.curPath = "/"
}

// Unmount clears the active mount.
func (d *Dispatcher) Unmount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.driver = nil
}

// Mounted reports whether a filesystem is currently mounted.
func (d *Dispatcher) Mounted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.driver != nil
}

// CurrentPath returns the shell-visible current directory.
func (d *Dispatcher) CurrentPath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.curPath
}

// CurrentDrive returns the drive id of the active mount.
func (d *Dispatcher) CurrentDrive() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drive
}

// Chdir normalises target against the current path: it supports ".",
// "..", absolute and relative segments, and collapses repeated
// slashes.
func (d *Dispatcher) Chdir(target string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.driver == nil {
		return kerrors.New(kerrors.NotFound, "fs.chdir", "no filesystem mounted")
	}
	d.curPath = NormalizePath(d.curPath, target)
	return nil
}

// NormalizePath resolves target relative to base (unless target is
// absolute), collapsing "." / ".." / "//" segments. The result always
// starts with "/".
func NormalizePath(base, target string) string {
	if target == "" {
		target = "."
	}
	var joined string
	if strings.HasPrefix(target, "/") {
		joined = target
	} else {
		joined = path.Join(base, target)
	}
	cleaned := path.Clean("/" + joined)
	return cleaned
}

func (d *Dispatcher) driverLocked() (Driver, error) {
	if d.driver == nil {
		return nil, kerrors.New(kerrors.NotFound, "fs", "no filesystem mounted")
	}
	return d.driver, nil
}

// List lists dir (relative to the current path unless absolute)
// through whichever driver is mounted.
func (d *Dispatcher) List(dir string) ([]Entry, error) {
	d.mu.Lock()
	drv, err := d.driverLocked()
	p := NormalizePath(d.curPath, dir)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return drv.List(p)
}

// ReadFile reads path (relative to the current path unless absolute).
func (d *Dispatcher) ReadFile(filePath string) ([]byte, error) {
	d.mu.Lock()
	drv, err := d.driverLocked()
	p := NormalizePath(d.curPath, filePath)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return drv.ReadFile(p)
}

// WriteFile writes path with a periodic progress callback, forwarding
// to whichever driver is mounted. The drivers call progress directly;
// WriteProgress is a separate percentage-step publisher a caller can
// feed from that callback.
func (d *Dispatcher) WriteFile(filePath string, data []byte, progress func(written, total int)) error {
	d.mu.Lock()
	drv, err := d.driverLocked()
	p := NormalizePath(d.curPath, filePath)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if err := drv.WriteFile(p, data, progress); err != nil {
		return err
	}
	logging.WithPath(logging.Default(), p).Debug("wrote file", "bytes", len(data))
	return nil
}

// Mkdir and Remove forward identically to List/ReadFile.
func (d *Dispatcher) Mkdir(dirPath string) error {
	d.mu.Lock()
	drv, err := d.driverLocked()
	p := NormalizePath(d.curPath, dirPath)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	return drv.Mkdir(p)
}

func (d *Dispatcher) Remove(targetPath string) error {
	d.mu.Lock()
	drv, err := d.driverLocked()
	p := NormalizePath(d.curPath, targetPath)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	return drv.Remove(p)
}

// WriteProgress publishes a (label, total, written) counter on a fixed
// percentage-step schedule: 1% steps when total >= 100, one unit of
// progress otherwise. Redraws are idempotent: calling
// Update with an unchanged percentage is a no-op.
type WriteProgress struct {
	Label    string
	Total    int
	written  int
	lastPct  int
	redrawFn func(line string)
}

// NewWriteProgress creates a progress publisher that calls redraw
// whenever the displayed line changes.
func NewWriteProgress(label string, total int, redraw func(line string)) *WriteProgress {
	return &WriteProgress{Label: label, Total: total, lastPct: -1, redrawFn: redraw}
}

// Update advances the counter to written bytes and redraws if the
// displayed step changed.
func (p *WriteProgress) Update(written int) {
	p.written = written
	pct := p.percent()
	if pct == p.lastPct {
		return
	}
	p.lastPct = pct
	if p.redrawFn != nil {
		p.redrawFn(p.render(pct))
	}
}

func (p *WriteProgress) percent() int {
	if p.Total <= 0 {
		return 100
	}
	if p.Total >= 100 {
		return p.written * 100 / p.Total
	}
	// Below 100 total units, each unit is its own step.
	return p.written
}

func (p *WriteProgress) render(pct int) string {
	if p.Total >= 100 {
		return fmt.Sprintf("%s: %d%%", p.Label, pct)
	}
	return fmt.Sprintf("%s: %d/%d", p.Label, p.written, p.Total)
}
