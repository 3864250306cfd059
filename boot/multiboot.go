// Package boot implements the Multiboot2 command-line tag parsing and
// MOTD rendering the kernel runs during early startup.
package boot

import "strings"

// CmdlineOptions is the subset of the boot command line orionOS acts
// on, parsed from the Multiboot2 "cmdline" tag string.
type CmdlineOptions struct {
	// RootDrive is the drive id named by "rd=<n>#", or -1 if absent
	// (auto-detect).
	RootDrive int
	// RamdiskPath is the path named by "ramdisk=<path>", empty if
	// absent.
	RamdiskPath string
	// EnableFont requests early bitmap-font loading ("enable_font").
	EnableFont bool
}

// ParseCmdline parses the raw Multiboot2 command-line string into
// CmdlineOptions. Unrecognized tokens are ignored; a bad boot
// argument must not stop the boot.
func ParseCmdline(cmdline string) CmdlineOptions {
	opts := CmdlineOptions{RootDrive: -1}
	for _, tok := range strings.Fields(cmdline) {
		switch {
		case strings.HasPrefix(tok, "rd="):
			parseRootDrive(tok[len("rd="):], &opts)
		case strings.HasPrefix(tok, "ramdisk="):
			opts.RamdiskPath = tok[len("ramdisk="):]
		case tok == "enable_font":
			opts.EnableFont = true
		}
	}
	return opts
}

// parseRootDrive accepts the "<digit>#" syntax only; anything else is
// silently ignored.
func parseRootDrive(s string, opts *CmdlineOptions) {
	if len(s) != 2 || s[1] != '#' || s[0] < '0' || s[0] > '9' {
		return
	}
	opts.RootDrive = int(s[0] - '0')
}

// Module describes one Multiboot2 boot module (a loaded ramdisk image,
// typically).
type Module struct {
	Cmdline string
	Start   uint32
	End     uint32
}

// SelectRamdiskModule picks the ramdisk module among the boot modules:
// the first one whose cmdline mentions a ramdisk-ish keyword, else
// the first unnamed module seen, as a fallback.
func SelectRamdiskModule(modules []Module) (Module, bool) {
	for _, m := range modules {
		c := strings.ToLower(m.Cmdline)
		if strings.Contains(c, "ramd") || strings.Contains(c, "ramdisk") ||
			strings.Contains(c, "initrd") || strings.Contains(c, "initramfs") {
			return m, true
		}
	}
	for _, m := range modules {
		if m.Cmdline == "" {
			return m, true
		}
	}
	return Module{}, false
}
