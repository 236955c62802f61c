package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-xfs/internal/disk"
	"github.com/deploymenttheory/go-xfs/pkg/app"
	"github.com/deploymenttheory/go-xfs/pkg/app/report"
)

var (
	// Global output flags
	verbose      bool
	quiet        bool
	outputFormat string
	logLevel     string

	// Image selection flags
	configPath string
	offset     int64
	sectorSize uint32
	detect     bool
	fsType     string

	// Settings resolved before each command runs
	appCtx *app.Context
	config *disk.Config
)

var rootCmd = &cobra.Command{
	Use:   "go-xfs",
	Short: "Read-only XFS filesystem image inspector",
	Long: `go-xfs is a read-only, forensic command-line tool for inspecting XFS
filesystem images without mounting them.

It decodes the superblock, group descriptors, inodes and extent trees
directly from raw images, partitioned disk images or block devices, and
reports block and inode allocation state.

Commands:
  fsstat      Summarize the filesystem and its groups
  istat       Show an inode and its data runs
  blocks      List block classifications
  inodes      List inode classifications
  cat         Write the content of an inode to stdout
  scan        Count block classifications across the filesystem`,
	Version:           "0.1.0-dev",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	flags.StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
	flags.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	flags.StringVar(&configPath, "config", "", "config file (default: xfs-config.yaml in ., ./config, $HOME/.go-xfs, /etc/go-xfs)")
	flags.Int64Var(&offset, "offset", 0, "byte offset of the filesystem within the image")
	flags.Uint32Var(&sectorSize, "sector-size", 512, "sector size of the image in bytes")
	flags.BoolVar(&detect, "detect", false, "locate the filesystem through its signature or a GPT partition")
	flags.StringVarP(&fsType, "type", "t", "xfs", "expected filesystem type (xfs, auto)")

	rootCmd.MarkFlagsMutuallyExclusive("offset", "detect")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// setup merges the config file with explicitly set flags and builds the
// application context.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := disk.LoadConfig(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = outputFormat
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("offset") {
		cfg.Offset = offset
		cfg.AutoDetect = false
	}
	if flags.Changed("sector-size") {
		cfg.SectorSize = sectorSize
	}
	if flags.Changed("detect") {
		cfg.AutoDetect = detect
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	config = cfg

	ctx := app.NewContext()
	if c := cmd.Context(); c != nil {
		ctx.Context = c
	}
	ctx.OutputFormat = GetOutputFormat()
	ctx.Verbose = GetVerbose()
	ctx.Quiet = GetQuiet()
	ctx.Out = cmd.OutOrStdout()
	ctx.Logger.SetOutput(cmd.ErrOrStderr())
	if err := ctx.SetLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	appCtx = ctx
	return nil
}

// imageTarget builds the image selection for path from the resolved config
func imageTarget(path string) *app.ImageTarget {
	return &app.ImageTarget{
		Path:       path,
		Offset:     config.Offset,
		AutoDetect: config.AutoDetect,
		SectorSize: config.SectorSize,
		FSType:     fsType,
	}
}

// withSession opens the image at path, runs fn and closes the session
func withSession(path string, fn func(*report.Session) error) error {
	session, err := report.OpenSession(appCtx, imageTarget(path))
	if err != nil {
		return err
	}
	defer session.Close()

	for _, warning := range session.FS.Warnings() {
		appCtx.Log("warning: " + warning)
	}
	return fn(session)
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quiet
}

// GetOutputFormat returns the resolved output format
func GetOutputFormat() string {
	if config != nil {
		return config.Output
	}
	return outputFormat
}
