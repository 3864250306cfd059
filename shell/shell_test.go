package shell

import "testing"

func TestTokenizeBasic(t *testing.T) {
	l := Tokenize("ls /home")
	if l.Command != "ls" || l.Args != "/home" || l.Background {
		t.Errorf("l = %+v", l)
	}
}

func TestTokenizeBackgroundSuffix(t *testing.T) {
	cases := []string{"sort &", "sort&", "sort  & "}
	for _, c := range cases {
		l := Tokenize(c)
		if l.Command != "sort" || !l.Background {
			t.Errorf("Tokenize(%q) = %+v, want command=sort background=true", c, l)
		}
	}
}

func TestTokenizeNoArgs(t *testing.T) {
	l := Tokenize("cls")
	if l.Command != "cls" || l.Args != "" {
		t.Errorf("l = %+v", l)
	}
}

func TestTokenizeEmptyLine(t *testing.T) {
	l := Tokenize("   ")
	if l.Command != "" {
		t.Errorf("l = %+v, want empty command", l)
	}
}

func TestDispatchRunsRegisteredHandler(t *testing.T) {
	tbl := NewTable()
	var gotArgs string
	tbl.Register("cat", func(args string) error {
		gotArgs = args
		return nil
	})
	if _, err := tbl.Dispatch("cat notes.txt"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if gotArgs != "notes.txt" {
		t.Errorf("gotArgs = %q, want notes.txt", gotArgs)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	tbl := NewTable()
	if _, err := tbl.Dispatch("frobnicate"); err == nil {
		t.Fatal("expected NotFound for an unregistered command")
	}
}

func TestDispatchEmptyLineIsNoop(t *testing.T) {
	tbl := NewTable()
	if _, err := tbl.Dispatch("   "); err != nil {
		t.Errorf("Dispatch(empty) error = %v, want nil", err)
	}
}

func TestParseDiskArgBothForms(t *testing.T) {
	for _, raw := range []string{"0", "0#", " 0 # ", "2"} {
		if _, err := ParseDiskArg(raw); err != nil {
			t.Errorf("ParseDiskArg(%q) error = %v", raw, err)
		}
	}
	id, _ := ParseDiskArg("3#")
	if id != 3 {
		t.Errorf("ParseDiskArg(3#) = %d, want 3", id)
	}
}

func TestParseDiskArgRejectsNonNumeric(t *testing.T) {
	if _, err := ParseDiskArg("abc"); err == nil {
		t.Fatal("expected error for non-numeric drive id")
	}
}
