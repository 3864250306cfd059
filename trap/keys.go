package trap

// Key codes returned by GETKEY/GETKEY_NB, modeled on a small
// PC-keyboard scan-code-derived set sufficient for the shell and GUI
// server.
const (
	KeyNone      = 0
	KeyBackspace = 0x08
	KeyTab       = 0x09
	KeyEnter     = 0x0D
	KeyEscape    = 0x1B
	KeyDelete    = 0x7F
	KeyLeft      = 0x90
	KeyRight     = 0x91
	KeyUp        = 0x92
	KeyDown      = 0x93
)
