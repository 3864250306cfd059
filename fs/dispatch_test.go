package fs

import (
	"testing"

	kerrors "orionos/errors"
)

type fakeDriver struct {
	files map[string][]byte
	dirs  map[string]bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{files: map[string][]byte{}, dirs: map[string]bool{"/": true}}
}

func (f *fakeDriver) Type() FSType { return FSXVFS }

func (f *fakeDriver) List(dir string) ([]Entry, error) {
	var out []Entry
	for name := range f.files {
		out = append(out, Entry{Name: name})
	}
	return out, nil
}

func (f *fakeDriver) ReadFile(path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, kerrors.New(kerrors.NotFound, "fakeDriver.ReadFile", path)
	}
	return data, nil
}

func (f *fakeDriver) WriteFile(path string, data []byte, progress func(written, total int)) error {
	f.files[path] = data
	if progress != nil {
		progress(len(data), len(data))
	}
	return nil
}

func (f *fakeDriver) Mkdir(path string) error {
	f.dirs[path] = true
	return nil
}

func (f *fakeDriver) Remove(path string) error {
	delete(f.files, path)
	delete(f.dirs, path)
	return nil
}

func TestDispatcherNotMountedReturnsNotFound(t *testing.T) {
	d := NewDispatcher()
	if _, err := d.ReadFile("/foo"); !kerrors.IsKind(err, kerrors.NotFound) {
		t.Errorf("ReadFile() on unmounted dispatcher = %v, want NotFound", err)
	}
}

func TestDispatcherMountAndReadWrite(t *testing.T) {
	d := NewDispatcher()
	drv := newFakeDriver()
	d.Mount(drv, 0)

	if err := d.WriteFile("greeting.txt", []byte("hi"), nil); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := d.ReadFile("greeting.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hi" {
		t.Errorf("ReadFile() = %q, want hi", got)
	}
}

func TestNormalizePathRelativeAndDotDot(t *testing.T) {
	cases := []struct{ base, target, want string }{
		{"/", "home", "/home"},
		{"/home/user", "..", "/home"},
		{"/home/user", ".", "/home/user"},
		{"/home", "/etc", "/etc"},
		{"/a//b", "./c", "/a/b/c"},
		{"/", "..", "/"},
	}
	for _, c := range cases {
		if got := NormalizePath(c.base, c.target); got != c.want {
			t.Errorf("NormalizePath(%q, %q) = %q, want %q", c.base, c.target, got, c.want)
		}
	}
}

func TestChdirUpdatesCurrentPath(t *testing.T) {
	d := NewDispatcher()
	d.Mount(newFakeDriver(), 0)
	if err := d.Chdir("home"); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	if d.CurrentPath() != "/home" {
		t.Errorf("CurrentPath() = %q, want /home", d.CurrentPath())
	}
	if err := d.Chdir(".."); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	if d.CurrentPath() != "/" {
		t.Errorf("CurrentPath() = %q, want /", d.CurrentPath())
	}
}

func TestWriteProgressStepsAtOnePercent(t *testing.T) {
	var lines []string
	wp := NewWriteProgress("copy", 200, func(line string) { lines = append(lines, line) })
	wp.Update(1) // 0%
	wp.Update(2) // 1%
	wp.Update(2) // no-op, same percentage
	wp.Update(4) // 2%
	if len(lines) != 3 {
		t.Fatalf("lines = %v, want 3 redraws", lines)
	}
}

func TestWriteProgressSubHundredStepsPerUnit(t *testing.T) {
	var lines []string
	wp := NewWriteProgress("load", 10, func(line string) { lines = append(lines, line) })
	for i := 1; i <= 10; i++ {
		wp.Update(i)
	}
	if len(lines) != 10 {
		t.Errorf("lines = %d, want 10 (one redraw per unit below 100 total)", len(lines))
	}
}
