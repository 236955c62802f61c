package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-xfs/internal/testimage"
	"github.com/deploymenttheory/go-xfs/internal/types"
	"github.com/deploymenttheory/go-xfs/pkg/app"
)

// run executes the root command with args and returns what it wrote to
// stdout. Every call passes --output and --config explicitly because flag
// values persist between executions.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	err := rootCmd.Execute()
	return out.String(), err
}

func fixture(t *testing.T) string {
	t.Helper()
	b := testimage.New(testimage.Options{BlockSize: 1024, GroupBlocks: 512, GroupCount: 2})
	b.WriteInode(2, testimage.Inode{Mode: types.ModeDir | 0o755, Format: types.DinodeFmtLocal, Nlink: 2})
	b.WriteInode(12, testimage.Inode{
		Mode:   types.ModeReg | 0o600,
		Format: types.DinodeFmtExtents,
		Size:   1500,
		Nlink:  1,
		Fork:   testimage.LeafNode(b.Endian(), b.LiteralSize(3), testimage.Extent(0, 800, 2)),
	})
	b.WriteBlock(800, bytes.Repeat([]byte{'x'}, 1024))
	b.WriteBlock(801, bytes.Repeat([]byte{'y'}, 1024))
	b.SetBlockAllocated(800, true)
	b.SetBlockAllocated(801, true)

	path := filepath.Join(t.TempDir(), "fixture.img")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o600))
	return path
}

func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xfs-config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: error\n"), 0o600))
	return path
}

func TestFSStatCommand(t *testing.T) {
	out, err := run(t, "fsstat", fixture(t), "--output", "json", "--config", emptyConfig(t))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "xfs", decoded["type"])
	assert.Equal(t, float64(1023), decoded["last_block"])
	assert.Len(t, decoded["groups"], 2)
}

func TestIStatCommand(t *testing.T) {
	out, err := run(t, "istat", fixture(t), "0xc", "--output", "table", "--config", emptyConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "-rw-------")
	assert.Contains(t, out, "800")

	_, err = run(t, "istat", fixture(t), "twelve", "--output", "table", "--config", emptyConfig(t))
	assert.ErrorContains(t, err, "invalid inode number")
}

func TestBlocksCommand(t *testing.T) {
	out, err := run(t, "blocks", fixture(t), "--flags", "alloc,content", "--output", "yaml", "--config", emptyConfig(t))
	require.NoError(t, err)

	var decoded struct {
		Blocks []struct {
			Addr  uint64 `yaml:"addr"`
			Flags string `yaml:"flags"`
		} `yaml:"blocks"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "yaml", GetOutputFormat())
	assert.False(t, GetVerbose())
	assert.False(t, GetQuiet())
	require.Len(t, decoded.Blocks, 2)
	assert.Equal(t, uint64(800), decoded.Blocks[0].Addr)
	assert.Equal(t, "alloc|content", decoded.Blocks[1].Flags)
}

func TestOutputFormatFromConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "xfs-config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("output: json\nlog_level: error\n"), 0o600))

	_, err := run(t, "fsstat", fixture(t), "--output", "yaml", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "yaml", GetOutputFormat(), "an explicit flag overrides the config file")
	assert.Equal(t, GetOutputFormat(), appCtx.OutputFormat)
}

func TestCatCommand(t *testing.T) {
	out, err := run(t, "cat", fixture(t), "12", "--output", "table", "--config", emptyConfig(t))
	require.NoError(t, err)
	want := append(bytes.Repeat([]byte{'x'}, 1024), bytes.Repeat([]byte{'y'}, 1500-1024)...)
	assert.Equal(t, string(want), out)
}

func TestScanCommandUsesConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "xfs-config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("scan_workers: 2\nscan_chunk_blocks: 100\nlog_level: error\n"), 0o600))

	out, err := run(t, "scan", fixture(t), "--output", "json", "--config", cfg)
	require.NoError(t, err)

	var decoded struct {
		Workers int `json:"workers"`
		Chunks  int `json:"chunks"`
		Totals  struct {
			Blocks uint64 `json:"blocks"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 2, decoded.Workers)
	// One leading chunk, then six per group of 512 blocks.
	assert.Equal(t, 13, decoded.Chunks)
	assert.Equal(t, uint64(1024), decoded.Totals.Blocks)
}

func TestCommandErrors(t *testing.T) {
	_, err := run(t, "fsstat", filepath.Join(t.TempDir(), "missing.img"), "--output", "table", "--config", emptyConfig(t))
	require.Error(t, err)
	var ce *app.CommonError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, app.ErrCodeImageAccess, ce.Code)

	_, err = run(t, "fsstat", fixture(t), "--output", "xml", "--config", emptyConfig(t))
	assert.ErrorContains(t, err, "output")

	_, err = run(t, "fsstat", "--output", "table", "--config", emptyConfig(t))
	assert.Error(t, err, "an image path is required")
}
