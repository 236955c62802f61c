package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-xfs/pkg/app/report"
)

var (
	blocksStart uint64
	blocksEnd   uint64
	blocksFlags []string
	blocksLimit int
)

var blocksCmd = &cobra.Command{
	Use:   "blocks [image-path]",
	Short: "List block classifications",
	Long: `List blocks with their allocation and metadata classification.

Flags select which blocks are listed: alloc, unalloc, meta and content.
Omitting both alloc and unalloc selects both; the same holds for meta and
content.

Examples:
  # Every allocated content block
  go-xfs blocks disk.img --flags alloc,content

  # The first 100 free blocks after block 5000
  go-xfs blocks disk.img --start 5000 --flags unalloc --limit 100`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &report.BlocksRequest{Start: blocksStart, Flags: blocksFlags, Limit: blocksLimit}
		if cmd.Flags().Changed("end") {
			req.End = &blocksEnd
		}
		if err := req.Validate(); err != nil {
			return err
		}
		return withSession(args[0], func(s *report.Session) error {
			resp, err := report.Blocks(appCtx, s, req)
			if err != nil {
				return err
			}
			return report.FormatOutput(appCtx.Out, resp, appCtx.OutputFormat)
		})
	},
}

func init() {
	rootCmd.AddCommand(blocksCmd)

	blocksCmd.Flags().Uint64Var(&blocksStart, "start", 0, "first block to list")
	blocksCmd.Flags().Uint64Var(&blocksEnd, "end", 0, "last block to list (default: last block)")
	blocksCmd.Flags().StringSliceVar(&blocksFlags, "flags", nil, "block selection (alloc, unalloc, meta, content)")
	blocksCmd.Flags().IntVar(&blocksLimit, "limit", 0, "maximum blocks to list (0 for no limit)")
}
