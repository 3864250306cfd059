// Package config loads orionOS's persisted configuration file,
// /system/config/orion.stg, an INI-style file with a single [orion]
// section.
package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	kerrors "orionos/errors"
)

// Config holds the parsed /system/config/orion.stg settings.
type Config struct {
	// PromptFG and PromptBG are console colour indices (0-15 each).
	PromptFG, PromptBG int
	// BeepEnabled toggles the PC speaker for the shell's BEEP syscall.
	BeepEnabled bool
	// BootClear clears the console before printing the boot banner.
	BootClear bool
}

// Default returns the built-in defaults used when no config file exists.
func Default() Config {
	return Config{PromptFG: 7, PromptBG: 0, BeepEnabled: true, BootClear: false}
}

// BootFlags returns the bit-packed flags the BOOT_FLAGS syscall
// reports: bit 0 is boot_clear.
func (c Config) BootFlags() uint32 {
	var flags uint32
	if c.BootClear {
		flags |= 1
	}
	return flags
}

// iniToTOMLLines rewrites an INI-style file into a form go-toml's
// decoder accepts: `[section]` headers verbatim, and every `key=value`
// pair rewritten to `key="value"` so TOML's string grammar (not its
// numeric/array grammar) governs the right-hand side: orion.stg's
// values (color pairs like "7,0", flags like "1") are not valid bare
// TOML scalars, but are valid TOML strings. Blank lines and comments
// (TOML only allows whole-line `#` comments, which is what orion.stg
// uses in practice) are dropped up front.
func iniToTOMLLines(r io.Reader) ([]byte, error) {
	var out strings.Builder
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		fmt.Fprintf(&out, "%s = %q\n", key, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return []byte(out.String()), nil
}

// Load parses an orion.stg reader into a Config, starting from
// Default() and overriding any keys present under [orion]. Unknown
// keys and unknown sections are ignored.
func Load(r io.Reader) (Config, error) {
	cfg := Default()

	body, err := iniToTOMLLines(r)
	if err != nil {
		return cfg, kerrors.Wrap(err, kerrors.Fault, "config.load")
	}

	var doc map[string]map[string]string
	if err := toml.Unmarshal(body, &doc); err != nil {
		return cfg, kerrors.WrapWithDetail(err, kerrors.InvalidArgument, "config.load", "malformed orion.stg")
	}

	section, ok := doc["orion"]
	if !ok {
		return cfg, nil
	}

	if v, ok := section["prompt_color"]; ok {
		fg, bg, err := parsePromptColor(v)
		if err == nil {
			cfg.PromptFG, cfg.PromptBG = fg, bg
		}
	}
	if v, ok := section["beep_enabled"]; ok {
		cfg.BeepEnabled = parseBool(v, cfg.BeepEnabled)
	}
	if v, ok := section["boot_clear"]; ok {
		cfg.BootClear = parseBool(v, cfg.BootClear)
	}

	return cfg, nil
}

func parsePromptColor(v string) (fg, bg int, err error) {
	parts := strings.SplitN(v, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("prompt_color must be fg,bg")
	}
	fg, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	bg, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("prompt_color values must be integers")
	}
	if fg < 0 || fg > 15 || bg < 0 || bg > 15 {
		return 0, 0, fmt.Errorf("prompt_color values must be 0-15")
	}
	return fg, bg, nil
}

func parseBool(v string, fallback bool) bool {
	switch strings.TrimSpace(v) {
	case "0":
		return false
	case "1":
		return true
	default:
		return fallback
	}
}
