package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-xfs/pkg/app"
	"github.com/deploymenttheory/go-xfs/pkg/app/report"
)

var (
	scanWorkers     int
	scanChunkBlocks uint64
)

var scanCmd = &cobra.Command{
	Use:   "scan [image-path]",
	Short: "Count block classifications across the filesystem",
	Long: `Classify every block of the filesystem on a pool of workers and report
per-group totals. Groups whose free block count disagrees with their block
bitmap are flagged.

Examples:
  go-xfs scan disk.img --workers 8
  go-xfs scan disk.img -o json`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &report.ScanRequest{Workers: config.ScanWorkers, ChunkBlocks: config.ScanChunkBlocks}
		if cmd.Flags().Changed("workers") {
			req.Workers = scanWorkers
		}
		if cmd.Flags().Changed("chunk-blocks") {
			req.ChunkBlocks = scanChunkBlocks
		}
		if err := req.Validate(); err != nil {
			return err
		}

		if appCtx.Verbose {
			appCtx.SetProgress(func(u app.ProgressUpdate) {
				appCtx.Logger.Debugf("%s: %d/%d chunks (%d%%)", u.Message, u.Completed, u.Total, u.Percent())
			})
		}

		return withSession(args[0], func(s *report.Session) error {
			r, err := report.Scan(appCtx, s, req)
			if err != nil {
				return err
			}
			appCtx.Log(fmt.Sprintf("Image reads: %d (%d bytes)", s.Image.Stats().Reads, s.Image.Stats().BytesRead))
			return report.FormatOutput(appCtx.Out, r, appCtx.OutputFormat)
		})
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().IntVar(&scanWorkers, "workers", 4, "number of concurrent workers")
	scanCmd.Flags().Uint64Var(&scanChunkBlocks, "chunk-blocks", 4096, "blocks per unit of work")
}
