package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-xfs/pkg/app/report"
)

var catCmd = &cobra.Command{
	Use:   "cat [image-path] [inode]",
	Short: "Write the content of an inode to stdout",
	Long: `Write the content of an inode to stdout. Holes and unwritten extents
read as zeros.

Examples:
  go-xfs cat disk.img 131 > recovered.bin`,

	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		inum, err := parseInode(args[1])
		if err != nil {
			return err
		}
		return withSession(args[0], func(s *report.Session) error {
			n, err := report.Cat(appCtx, s, inum, appCtx.Out)
			if err != nil {
				return err
			}
			appCtx.Log(fmt.Sprintf("Wrote %d bytes from inode %d", n, inum))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
