package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-xfs/pkg/app/report"
)

var fsstatCmd = &cobra.Command{
	Use:   "fsstat [image-path]",
	Short: "Summarize the filesystem and its groups",
	Long: `Display superblock details, address ranges and every group descriptor.

Examples:
  # Summarize a raw image
  go-xfs fsstat disk.img

  # Locate the filesystem inside a partitioned image and print JSON
  go-xfs fsstat disk.img --detect -o json`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(args[0], func(s *report.Session) error {
			return report.NewReporter(appCtx, s, appCtx.OutputFormat).FSStat(appCtx.Out)
		})
	},
}

func init() {
	rootCmd.AddCommand(fsstatCmd)
}
