// orion hosts the orionOS kernel simulator: a 32-bit
// single-address-space hobby kernel modeled entirely in a host
// process, against a flat disk image rather than real hardware.
//
// Commands:
//
//	boot    - boot the simulator against a disk image
//	probe   - quick-probe a disk image's filesystem without booting
//	mkdisk  - create a blank raw disk image
//	version - print version information
package main

import (
	"fmt"
	"os"

	"orionos/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
