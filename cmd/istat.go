package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-xfs/internal/types"
	"github.com/deploymenttheory/go-xfs/pkg/app"
	"github.com/deploymenttheory/go-xfs/pkg/app/report"
)

var istatCmd = &cobra.Command{
	Use:   "istat [image-path] [inode]",
	Short: "Show an inode and its data runs",
	Long: `Display the metadata of one inode and the attribute list built from
its data fork, including every data run and extent tree block.

Examples:
  go-xfs istat disk.img 131
  go-xfs istat disk.img 131 -o yaml`,

	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		inum, err := parseInode(args[1])
		if err != nil {
			return err
		}
		return withSession(args[0], func(s *report.Session) error {
			return report.NewReporter(appCtx, s, appCtx.OutputFormat).IStat(appCtx.Out, types.InumT(inum))
		})
	},
}

func init() {
	rootCmd.AddCommand(istatCmd)
}

// parseInode accepts decimal or 0x-prefixed inode numbers
func parseInode(s string) (uint64, error) {
	inum, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, app.NewError(app.ErrCodeInvalidInput, "invalid inode number "+strconv.Quote(s), err)
	}
	return inum, nil
}
