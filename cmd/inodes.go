package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-xfs/pkg/app/report"
)

var (
	inodesStart uint64
	inodesEnd   uint64
	inodesFlags []string
	inodesLimit int
)

var inodesCmd = &cobra.Command{
	Use:   "inodes [image-path]",
	Short: "List inode classifications",
	Long: `List inodes with their allocation state and whether the slot holds an
inode core.

Examples:
  # Allocated inodes only
  go-xfs inodes disk.img --flags alloc

  # Slots marked free that still hold an inode core
  go-xfs inodes disk.img --flags unalloc,used`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &report.InodesRequest{Start: inodesStart, End: inodesEnd, Flags: inodesFlags, Limit: inodesLimit}
		if err := req.Validate(); err != nil {
			return err
		}
		return withSession(args[0], func(s *report.Session) error {
			resp, err := report.Inodes(appCtx, s, req)
			if err != nil {
				return err
			}
			return report.FormatOutput(appCtx.Out, resp, appCtx.OutputFormat)
		})
	},
}

func init() {
	rootCmd.AddCommand(inodesCmd)

	inodesCmd.Flags().Uint64Var(&inodesStart, "start", 0, "first inode to list (default: first inode)")
	inodesCmd.Flags().Uint64Var(&inodesEnd, "end", 0, "last inode to list (default: last inode)")
	inodesCmd.Flags().StringSliceVar(&inodesFlags, "flags", nil, "inode selection (alloc, unalloc, used, unused)")
	inodesCmd.Flags().IntVar(&inodesLimit, "limit", 0, "maximum inodes to list (0 for no limit)")
}
