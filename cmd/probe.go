package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"orionos/blockdev"
	"orionos/fs"
)

var probeCmd = &cobra.Command{
	Use:   "probe <disk-image>",
	Short: "Quick-probe a disk image and print its filesystem classification",
	Args:  cobra.ExactArgs(1),
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	backend, err := blockdev.NewFileBackend(args[0], blockdev.KindAHCI, "orion-disk")
	if err != nil {
		return err
	}
	defer backend.Close()

	dt := blockdev.NewDriveTable()
	dt.RefreshDriveMap([]blockdev.Backend{backend})

	result, err := fs.QuickProbe(dt, 0)
	if err != nil {
		return err
	}

	fmt.Printf("drive 0: %d sectors, type=%s baseLBA=%d\n", backend.SectorCount(), result.Type, result.BaseLBA)
	return nil
}
