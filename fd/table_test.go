package fd

import "testing"

func TestOpenReadWriteRoundTrip(t *testing.T) {
	tbl := NewTable()
	n, err := tbl.Open(7, "/tmp/x", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := tbl.Write(n, []byte("Hello, world!")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	slot, err := tbl.Close(n)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !slot.Dirty || string(slot.Data) != "Hello, world!" {
		t.Errorf("closed slot = %+v", slot)
	}

	n2, err := tbl.Open(7, "/tmp/x", slot.Data)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := tbl.Read(n2, 64)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "Hello, world!" {
		t.Errorf("Read = %q, want %q", got, "Hello, world!")
	}
	if eof, _ := tbl.Read(n2, 64); eof != nil {
		t.Errorf("Read past end = %q, want nil", eof)
	}
}

func TestOpenConsoleBypassesCache(t *testing.T) {
	tbl := NewTable()
	n, err := tbl.Open(3, ConsolePath, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	slot, ok := tbl.Get(n)
	if !ok || !slot.Console {
		t.Errorf("slot = %+v, want Console=true", slot)
	}
}

func TestOpenTableFull(t *testing.T) {
	tbl := NewTable()
	for i := 0; i < MaxDescriptors; i++ {
		if _, err := tbl.Open(1, "/a", nil); err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
	}
	if _, err := tbl.Open(1, "/overflow", nil); err == nil {
		t.Fatal("expected OutOfMemory error when descriptor table is full")
	}
}

func TestReleaseOwnedByFreesOnlyThatPID(t *testing.T) {
	tbl := NewTable()
	a, _ := tbl.Open(1, "/a", nil)
	b, _ := tbl.Open(2, "/b", nil)

	tbl.ReleaseOwnedBy(1)

	if _, ok := tbl.Get(a); ok {
		t.Error("pid 1's descriptor should be released")
	}
	if _, ok := tbl.Get(b); !ok {
		t.Error("pid 2's descriptor should still be open")
	}
}

func TestWriteAtOffsetOverwritesInPlace(t *testing.T) {
	tbl := NewTable()
	n, _ := tbl.Open(1, "/a", []byte("aaaaa"))
	tbl.Write(n, []byte("bb"))
	slot, _ := tbl.Close(n)
	if string(slot.Data) != "bbaaa" {
		t.Errorf("data = %q, want %q", slot.Data, "bbaaa")
	}
}

func TestBadDescriptorErrors(t *testing.T) {
	tbl := NewTable()
	if _, ok := tbl.Get(5); ok {
		t.Error("Get on unused slot should report false")
	}
	if _, err := tbl.Read(5, 1); err == nil {
		t.Error("Read on unused slot should error")
	}
	if _, err := tbl.Write(5, []byte("x")); err == nil {
		t.Error("Write on unused slot should error")
	}
	if _, err := tbl.Close(5); err == nil {
		t.Error("Close on unused slot should error")
	}
}
