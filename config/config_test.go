package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Default()
	if cfg != want {
		t.Errorf("Load(empty) = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoad_ParsesOrionSection(t *testing.T) {
	input := `
; comment
[orion]
prompt_color=3,1
beep_enabled=0
boot_clear=1
unknown_key=banana
`
	cfg, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PromptFG != 3 || cfg.PromptBG != 1 {
		t.Errorf("prompt colors = (%d,%d), want (3,1)", cfg.PromptFG, cfg.PromptBG)
	}
	if cfg.BeepEnabled {
		t.Error("beep_enabled should be false")
	}
	if !cfg.BootClear {
		t.Error("boot_clear should be true")
	}
}

func TestLoad_IgnoresOtherSections(t *testing.T) {
	input := "[other]\nboot_clear=1\n"
	cfg, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BootClear {
		t.Error("keys outside [orion] must be ignored")
	}
}

func TestLoad_MalformedPromptColorIgnored(t *testing.T) {
	input := "[orion]\nprompt_color=notacolor\n"
	cfg, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Default()
	if cfg.PromptFG != want.PromptFG || cfg.PromptBG != want.PromptBG {
		t.Error("malformed prompt_color should leave defaults in place")
	}
}

func TestBootFlags(t *testing.T) {
	cfg := Default()
	if cfg.BootFlags()&1 != 0 {
		t.Error("default boot_clear should be unset")
	}
	cfg.BootClear = true
	if cfg.BootFlags()&1 != 1 {
		t.Error("boot_clear should set bit 0")
	}
}
