package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// FormatOutput writes response to w in the requested format
func FormatOutput(w io.Writer, response interface{}, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatJSON formats results as JSON
func formatJSON(w io.Writer, response interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// formatYAML formats results as YAML
func formatYAML(w io.Writer, response interface{}) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(response)
}

func formatTable(w io.Writer, response interface{}) error {
	switch r := response.(type) {
	case *FSStatReport:
		return fsstatTable(w, r)
	case *InodeReport:
		return inodeTable(w, r)
	case *BlocksResponse:
		return blocksTable(w, r)
	case *InodesResponse:
		return inodesTable(w, r)
	case *ScanReport:
		return scanTable(w, r)
	default:
		return fmt.Errorf("no table layout for %T", response)
	}
}

func fsstatTable(out io.Writer, r *FSStatReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "FILE SYSTEM INFORMATION\n")
	fmt.Fprintf(w, "-----------------------\n")
	fmt.Fprintf(w, "Type:\t%s (v%d, %s endian)\n", r.Type, r.Version, r.Endian)
	fmt.Fprintf(w, "Image:\t%s\n", r.Image)
	if r.Offset != 0 {
		fmt.Fprintf(w, "Offset:\t%d\n", r.Offset)
	}
	if r.Label != "" {
		fmt.Fprintf(w, "Label:\t%s\n", r.Label)
	}
	fmt.Fprintf(w, "UUID:\t%s\n", r.UUID)
	if r.MetaUUID != r.UUID {
		fmt.Fprintf(w, "Metadata UUID:\t%s\n", r.MetaUUID)
	}
	if len(r.Features) > 0 {
		fmt.Fprintf(w, "Features:\t%s\n", strings.Join(r.Features, " "))
	}
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "METADATA INFORMATION\n")
	fmt.Fprintf(w, "--------------------\n")
	fmt.Fprintf(w, "Inode Range:\t%d - %d\n", r.FirstInode, r.LastInode)
	fmt.Fprintf(w, "Root Directory:\t%d\n", r.RootInode)
	fmt.Fprintf(w, "Inode Size:\t%d\n", r.InodeSize)
	fmt.Fprintf(w, "Inodes:\t%d (%d free)\n", r.InodeCount, r.FreeInodes)
	fmt.Fprintf(w, "Inodes Per Group:\t%d\n", r.InodesPerGroup)
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "CONTENT INFORMATION\n")
	fmt.Fprintf(w, "-------------------\n")
	fmt.Fprintf(w, "Block Range:\t%d - %d\n", r.FirstBlock, r.LastBlock)
	fmt.Fprintf(w, "First Data Block:\t%d\n", r.FirstDataBlock)
	fmt.Fprintf(w, "Block Size:\t%d\n", r.BlockSize)
	fmt.Fprintf(w, "Sector Size:\t%d\n", r.SectorSize)
	fmt.Fprintf(w, "Blocks:\t%d (%d free)\n", r.BlockCount, r.FreeBlocks)
	fmt.Fprintf(w, "Blocks Per Group:\t%d\n", r.GroupBlocks)
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "GROUP\tBLOCKS\tBLOCK BITMAP\tINODE BITMAP\tINODE TABLE\tFREE BLOCKS\tFREE INODES\tDIRS\n")
	fmt.Fprintf(w, "-----\t------\t------------\t------------\t-----------\t-----------\t-----------\t----\n")
	for _, g := range r.Groups {
		if g.Error != "" {
			fmt.Fprintf(w, "%d\t%d - %d\t(%s)\n", g.Group, g.FirstBlock, g.LastBlock, g.Error)
			continue
		}
		fmt.Fprintf(w, "%d\t%d - %d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			g.Group, g.FirstBlock, g.LastBlock, g.BlockBitmap, g.InodeBitmap, g.InodeTable,
			g.FreeBlocks, g.FreeInodes, g.UsedDirs)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, warning := range r.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	return nil
}

func inodeTable(out io.Writer, r *InodeReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Inode:\t%d\n", r.Inode)
	fmt.Fprintf(w, "Allocation:\t%s\n", r.Flags)
	fmt.Fprintf(w, "Mode:\t%s\n", r.Mode)
	fmt.Fprintf(w, "Format:\t%s\n", r.Format)
	fmt.Fprintf(w, "Links:\t%d\n", r.Nlink)
	fmt.Fprintf(w, "UID / GID:\t%d / %d\n", r.UID, r.GID)
	fmt.Fprintf(w, "Size:\t%d\n", r.Size)
	fmt.Fprintf(w, "Blocks:\t%d\n", r.Blocks)
	fmt.Fprintf(w, "Generation:\t%d\n", r.Generation)
	fmt.Fprintf(w, "Accessed:\t%s\n", r.Atime.Format(time.RFC3339Nano))
	fmt.Fprintf(w, "Modified:\t%s\n", r.Mtime.Format(time.RFC3339Nano))
	fmt.Fprintf(w, "Changed:\t%s\n", r.Ctime.Format(time.RFC3339Nano))
	if r.Crtime != nil {
		fmt.Fprintf(w, "Created:\t%s\n", r.Crtime.Format(time.RFC3339Nano))
	}
	fmt.Fprintf(w, "Attributes:\t%s\n", r.AttrState)
	if r.AttrError != "" {
		fmt.Fprintf(w, "Attribute Error:\t%s\n", r.AttrError)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, attr := range r.Attributes {
		placement := "non-resident"
		if attr.Resident {
			placement = "resident"
		}
		fmt.Fprintf(out, "\nType: %s (%d) %s, size: %d, allocated: %d\n",
			attr.Type, attr.ID, placement, attr.Size, attr.AllocSize)
		if len(attr.Runs) == 0 {
			continue
		}

		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "OFFSET\tADDRESS\tLENGTH\tSTATE\n")
		for _, run := range attr.Runs {
			state := "written"
			if run.Unwritten {
				state = "unwritten"
			}
			fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", run.Offset, run.Addr, run.Length, state)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func blocksTable(out io.Writer, r *BlocksResponse) error {
	if len(r.Blocks) == 0 {
		fmt.Fprintf(out, "No blocks in %d - %d matched.\n", r.Start, r.End)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "BLOCK\tFLAGS\n")
	fmt.Fprintf(w, "-----\t-----\n")
	for _, b := range r.Blocks {
		fmt.Fprintf(w, "%d\t%s\n", b.Addr, b.Flags)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d blocks", len(r.Blocks))
	if r.Truncated {
		fmt.Fprintf(out, " (truncated)")
	}
	fmt.Fprintf(out, "\n")
	return nil
}

func inodesTable(out io.Writer, r *InodesResponse) error {
	if len(r.Inodes) == 0 {
		fmt.Fprintf(out, "No inodes in %d - %d matched.\n", r.Start, r.End)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "INODE\tFLAGS\tMODE\tSIZE\n")
	fmt.Fprintf(w, "-----\t-----\t----\t----\n")
	for _, in := range r.Inodes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", in.Inode, in.Flags, in.Mode, in.Size)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d inodes", len(r.Inodes))
	if r.Truncated {
		fmt.Fprintf(out, " (truncated)")
	}
	fmt.Fprintf(out, "\n")
	return nil
}

func scanTable(out io.Writer, r *ScanReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "GROUP\tBLOCKS\tALLOC\tUNALLOC\tMETA\tCONTENT\tDESC FREE\n")
	fmt.Fprintf(w, "-----\t------\t-----\t-------\t----\t-------\t---------\n")
	if r.Leading.Blocks > 0 {
		fmt.Fprintf(w, "-\t%d\t%d\t%d\t%d\t%d\t-\n",
			r.Leading.Blocks, r.Leading.Alloc, r.Leading.Unalloc, r.Leading.Meta, r.Leading.Content)
	}
	for _, g := range r.Groups {
		desc := "-"
		if g.DescriptorFree >= 0 {
			desc = fmt.Sprintf("%d", g.DescriptorFree)
			if g.Mismatch {
				desc += " (mismatch)"
			}
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			g.Group, g.Blocks, g.Alloc, g.Unalloc, g.Meta, g.Content, desc)
	}
	fmt.Fprintf(w, "total\t%d\t%d\t%d\t%d\t%d\t\n",
		r.Totals.Blocks, r.Totals.Alloc, r.Totals.Unalloc, r.Totals.Meta, r.Totals.Content)
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nScanned %d chunks with %d workers in %v\n", r.Chunks, r.Workers, r.Elapsed)
	return nil
}
