package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"orionos/blockdev"
)

var mkdiskSectors uint32

var mkdiskCmd = &cobra.Command{
	Use:   "mkdisk <path>",
	Short: "Create a blank raw disk image sized in sectors",
	Args:  cobra.ExactArgs(1),
	RunE:  runMkdisk,
}

func init() {
	mkdiskCmd.Flags().Uint32Var(&mkdiskSectors, "sectors", 65536, "number of 512-byte sectors in the new image")
	rootCmd.AddCommand(mkdiskCmd)
}

func runMkdisk(cmd *cobra.Command, args []string) error {
	f, err := os.OpenFile(args[0], os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Truncate(int64(mkdiskSectors) * blockdev.SectorSize); err != nil {
		return err
	}
	fmt.Printf("created %s: %d sectors (%d bytes)\n", args[0], mkdiskSectors, int64(mkdiskSectors)*blockdev.SectorSize)
	return nil
}
