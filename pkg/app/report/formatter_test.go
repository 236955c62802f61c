package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleInodeReport() *InodeReport {
	crtime := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	return &InodeReport{
		Inode:     12,
		Flags:     "alloc|used",
		Mode:      "-rw-r--r--",
		Size:      3172,
		Format:    "extents",
		Mtime:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Crtime:    &crtime,
		AttrState: "studied",
		Attributes: []AttributeReport{{
			Type:      "default",
			Size:      3172,
			AllocSize: 4096,
			Runs: []RunReport{
				{Offset: 0, Addr: 700, Length: 2},
				{Offset: 3, Addr: 710, Length: 1, Unwritten: true},
			},
		}},
	}
}

func TestFormatOutputTable(t *testing.T) {
	tests := []struct {
		name     string
		response interface{}
		contains []string
	}{
		{
			name: "fsstat",
			response: &FSStatReport{
				Type: "xfs", Version: 5, Endian: "big", UUID: "u1", MetaUUID: "u2", Label: "scratch",
				Features: []string{"crc", "ftype"}, FirstBlock: 0, LastBlock: 255,
				Groups: []GroupReport{
					{Group: 0, FirstBlock: 2, LastBlock: 129, BlockBitmap: 2, InodeBitmap: 3, InodeTable: 4, FreeBlocks: 124},
					{Group: 1, FirstBlock: 130, LastBlock: 255, Error: "block bitmap at block 9 outside [2, 255]"},
				},
				Warnings: []string{"root inode 100 is not the first inode"},
			},
			contains: []string{
				"FILE SYSTEM INFORMATION", "xfs (v5, big endian)", "Label:", "scratch",
				"Metadata UUID:", "crc ftype", "Block Range:", "0 - 255",
				"GROUP", "2 - 129", "(block bitmap at block 9 outside [2, 255])",
				"warning: root inode 100 is not the first inode",
			},
		},
		{
			name:     "istat",
			response: sampleInodeReport(),
			contains: []string{"Inode:", "alloc|used", "Created:", "2023-05-01T12:00:00Z", "Type: default (0) non-resident", "unwritten"},
		},
		{
			name:     "blocks",
			response: &BlocksResponse{Start: 0, End: 9, Blocks: []BlockEntry{{1, "alloc|meta"}}, Truncated: true},
			contains: []string{"BLOCK", "alloc|meta", "1 blocks (truncated)"},
		},
		{
			name:     "empty blocks",
			response: &BlocksResponse{Start: 4, End: 9},
			contains: []string{"No blocks in 4 - 9 matched."},
		},
		{
			name:     "inodes",
			response: &InodesResponse{Inodes: []InodeEntry{{Inode: 2, Flags: "alloc|used", Mode: "drwxr-xr-x"}}},
			contains: []string{"INODE", "drwxr-xr-x", "1 inodes"},
		},
		{
			name: "scan",
			response: &ScanReport{
				Leading: BlockCounts{Blocks: 2, Alloc: 2, Meta: 2},
				Groups: []GroupScan{
					{Group: 0, BlockCounts: BlockCounts{Blocks: 128, Unalloc: 128, Content: 128}, DescriptorFree: 5, Mismatch: true},
					{Group: 1, DescriptorFree: -1},
				},
				Totals:  BlockCounts{Blocks: 130},
				Workers: 4,
				Chunks:  3,
			},
			contains: []string{"DESC FREE", "5 (mismatch)", "total", "130", "Scanned 3 chunks with 4 workers"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, FormatOutput(&buf, tt.response, "table"))
			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestFormatOutputTableOmitsEqualMetaUUID(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatOutput(&buf, &FSStatReport{UUID: "same", MetaUUID: "same"}, "table"))
	assert.NotContains(t, buf.String(), "Metadata UUID")
	assert.NotContains(t, buf.String(), "Offset:")
}

func TestFormatOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatOutput(&buf, sampleInodeReport(), "json"))

	var decoded InodeReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *sampleInodeReport(), decoded)
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"inode\": 12"))
}

func TestFormatOutputYAML(t *testing.T) {
	var buf bytes.Buffer
	scan := &ScanReport{Groups: []GroupScan{{Group: 1, BlockCounts: BlockCounts{Blocks: 7, Alloc: 3}}}}
	require.NoError(t, FormatOutput(&buf, scan, "yaml"))

	assert.Contains(t, buf.String(), "  - group: 1\n")
	assert.Contains(t, buf.String(), "    blocks: 7\n")

	var decoded ScanReport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, uint64(3), decoded.Groups[0].Alloc)
}

func TestFormatOutputErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorContains(t, FormatOutput(&buf, sampleInodeReport(), "xml"), "unsupported output format: xml")
	assert.ErrorContains(t, FormatOutput(&buf, struct{}{}, "table"), "no table layout")
}
