package report

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/deploymenttheory/go-xfs/internal/disk"
	"github.com/deploymenttheory/go-xfs/internal/interfaces"
	"github.com/deploymenttheory/go-xfs/internal/services"
	"github.com/deploymenttheory/go-xfs/internal/types"
	"github.com/deploymenttheory/go-xfs/pkg/app"
)

// Session is an open image and the filesystem inside it
type Session struct {
	Image  *disk.FileImage
	FS     *services.Filesystem
	Offset int64
}

// Close releases the filesystem handle and the image
func (s *Session) Close() error {
	fsErr := s.FS.Close()
	if err := s.Image.Close(); err != nil {
		return err
	}
	return fsErr
}

// OpenSession opens the image named by target and the filesystem inside it
func OpenSession(ctx *app.Context, target *app.ImageTarget) (*Session, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	fsType, _ := types.ParseFSType(target.FSType)

	ctx.Log(fmt.Sprintf("Opening image: %s", target.String()))
	img, err := disk.OpenImage(target.Path, &disk.Config{SectorSize: target.SectorSize}, ctx.Logger)
	if err != nil {
		return nil, app.NewError(app.ErrCodeImageAccess, "failed to open image", err)
	}

	offset := target.Offset
	if target.AutoDetect {
		detected, method, err := img.DetectOffset()
		if err != nil {
			img.Close()
			return nil, app.NewError(app.ErrCodeNotXFS, "failed to locate filesystem", err)
		}
		ctx.Log(fmt.Sprintf("Filesystem found at offset %d (%s)", detected, method))
		offset = detected
	}

	fs, err := services.Open(img, offset, fsType, services.WithLogger(ctx.Logger))
	if err != nil {
		img.Close()
		return nil, app.Classify("failed to open filesystem", err)
	}
	return &Session{Image: img, FS: fs, Offset: offset}, nil
}

// FSStat builds the filesystem summary
func FSStat(ctx *app.Context, s *Session) (*FSStatReport, error) {
	fs := s.FS
	sb := fs.Superblock()

	endian := "little"
	if sb.Endian() == binary.BigEndian {
		endian = "big"
	}

	r := &FSStatReport{
		Image:          s.Image.Path(),
		Offset:         s.Offset,
		Type:           types.FSTypeXFS.String(),
		Endian:         endian,
		Version:        sb.Version(),
		UUID:           sb.UUID().String(),
		MetaUUID:       sb.MetaUUID().String(),
		Label:          sb.Label(),
		Features:       sb.Features(),
		BlockSize:      sb.BlockSize(),
		SectorSize:     sb.SectorSize(),
		InodeSize:      sb.InodeSize(),
		BlockCount:     sb.BlockCount(),
		FreeBlocks:     sb.FreeBlockCount(),
		InodeCount:     sb.InodeCount(),
		FreeInodes:     sb.FreeInodeCount(),
		FirstBlock:     uint64(fs.FirstBlock()),
		LastBlock:      uint64(fs.LastBlock()),
		FirstDataBlock: uint64(fs.FirstDataBlock()),
		FirstInode:     uint64(fs.FirstInode()),
		LastInode:      uint64(fs.LastInode()),
		RootInode:      uint64(fs.RootInode()),
		GroupBlocks:    sb.GroupBlocks(),
		InodesPerGroup: fs.InodesPerGroup(),
		Warnings:       fs.Warnings(),
	}

	for g := uint32(0); g < fs.GroupCount(); g++ {
		if err := ctx.Err(); err != nil {
			return nil, app.Classify("fsstat interrupted", err)
		}
		first, last := fs.GroupRange(g)
		gr := GroupReport{Group: g, FirstBlock: uint64(first), LastBlock: uint64(last)}

		desc, err := fs.GroupDescriptor(g)
		if err != nil {
			// One unreadable descriptor should not hide the others.
			ctx.Logger.WithFields(logrus.Fields{"group": g}).WithError(err).Warn("group descriptor unreadable")
			gr.Error = err.Error()
		} else {
			gr.BlockBitmap = uint64(desc.BlockBitmap())
			gr.InodeBitmap = uint64(desc.InodeBitmap())
			gr.InodeTable = uint64(desc.InodeTable())
			gr.FreeBlocks = desc.FreeBlocksCount()
			gr.FreeInodes = desc.FreeInodesCount()
			gr.UsedDirs = desc.UsedDirsCount()
			gr.Flags = desc.Flags()
			gr.Error = checkDescriptor(fs, desc)
		}
		r.Groups = append(r.Groups, gr)
	}

	r.Cache = fs.CacheStats()
	return r, nil
}

// checkDescriptor reports the first descriptor pointer that falls outside
// the filesystem, or "" when all are in range.
func checkDescriptor(fs *services.Filesystem, desc interfaces.GroupDescriptorReader) string {
	tableEnd := desc.InodeTable() + types.DaddrT(fs.InodeTableBlocks()) - 1
	for _, p := range []struct {
		name string
		addr types.DaddrT
	}{
		{"block bitmap", desc.BlockBitmap()},
		{"inode bitmap", desc.InodeBitmap()},
		{"inode table", desc.InodeTable()},
		{"inode table end", tableEnd},
	} {
		if p.addr < fs.FirstDataBlock() || p.addr > fs.LastBlock() {
			return fmt.Sprintf("%s at block %d outside [%d, %d]", p.name, p.addr, fs.FirstDataBlock(), fs.LastBlock())
		}
	}
	return ""
}

// IStat builds the report for one inode. A failure to build the attribute
// list is recorded in the report rather than returned.
func IStat(ctx *app.Context, s *Session, req *IStatRequest) (*InodeReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	meta, err := s.FS.LookupInode(types.InumT(req.Inode))
	if err != nil {
		return nil, app.Classify(fmt.Sprintf("failed to look up inode %d", req.Inode), err)
	}

	if err := s.FS.LoadAttributes(meta); err != nil {
		ctx.Logger.WithField("inode", req.Inode).WithError(err).Debug("attribute list not built")
	}
	return newInodeReport(meta), nil
}

func newInodeReport(meta *types.Meta) *InodeReport {
	r := &InodeReport{
		Inode:      uint64(meta.Addr),
		Flags:      meta.Flags.String(),
		Mode:       types.FileMode(meta.Mode).String(),
		Nlink:      meta.Nlink,
		UID:        meta.UID,
		GID:        meta.GID,
		Size:       meta.Size,
		Blocks:     meta.Nblocks,
		Generation: meta.Gen,
		Format:     meta.Format.String(),
		Atime:      meta.Atime,
		Mtime:      meta.Mtime,
		Ctime:      meta.Ctime,
		AttrState:  meta.AttrState.String(),
	}
	if !meta.Crtime.IsZero() {
		crtime := meta.Crtime
		r.Crtime = &crtime
	}
	if meta.AttrErr != nil {
		r.AttrError = meta.AttrErr.Error()
	}
	if meta.Attrs == nil {
		return r
	}

	for _, attr := range meta.Attrs.All() {
		ar := AttributeReport{
			Type:      attr.Type.String(),
			ID:        attr.ID,
			Resident:  attr.Flags&types.AttrFlagResident != 0,
			Size:      attr.Size,
			AllocSize: attr.AllocSize,
		}
		for _, run := range attr.Runs {
			ar.Runs = append(ar.Runs, RunReport{
				Offset:    run.Offset,
				Addr:      uint64(run.Addr),
				Length:    run.Len,
				Unwritten: run.Flags&types.RunFlagUnwritten != 0,
			})
		}
		r.Attributes = append(r.Attributes, ar)
	}
	return r
}

// Blocks lists block classifications over a range. Block content is never
// read.
func Blocks(ctx *app.Context, s *Session, req *BlocksRequest) (*BlocksResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	flags, _ := types.ParseBlockWalkFlags(req.Flags)

	start, end := types.DaddrT(req.Start), s.FS.LastBlock()
	if req.End != nil {
		end = types.DaddrT(*req.End)
	}

	resp := &BlocksResponse{Start: uint64(start), End: uint64(end), Blocks: []BlockEntry{}}
	err := s.FS.WalkBlocks(start, end, flags|types.BlockWalkFlagAddrOnly, func(b *types.Block) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if req.Limit > 0 && len(resp.Blocks) == req.Limit {
			resp.Truncated = true
			return types.ErrStopWalk
		}
		resp.Blocks = append(resp.Blocks, BlockEntry{Addr: uint64(b.Addr), Flags: b.Flags.String()})
		return nil
	})
	if err != nil {
		return nil, app.Classify("block walk failed", err)
	}
	return resp, nil
}

// Inodes lists inode classifications over a range
func Inodes(ctx *app.Context, s *Session, req *InodesRequest) (*InodesResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	flags, _ := types.ParseMetaFlags(req.Flags)

	start, end := types.InumT(req.Start), types.InumT(req.End)
	if req.Start == 0 {
		start = s.FS.FirstInode()
	}
	if req.End == 0 {
		end = s.FS.LastInode()
	}

	resp := &InodesResponse{Start: uint64(start), End: uint64(end), Inodes: []InodeEntry{}}
	err := s.FS.WalkInodes(start, end, flags, func(meta *types.Meta) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if req.Limit > 0 && len(resp.Inodes) == req.Limit {
			resp.Truncated = true
			return types.ErrStopWalk
		}
		resp.Inodes = append(resp.Inodes, InodeEntry{
			Inode: uint64(meta.Addr),
			Flags: meta.Flags.String(),
			Mode:  types.FileMode(meta.Mode).String(),
			Size:  meta.Size,
		})
		return nil
	})
	if err != nil {
		return nil, app.Classify("inode walk failed", err)
	}
	return resp, nil
}

// Cat copies the content of an inode to w and returns the byte count
func Cat(ctx *app.Context, s *Session, inum uint64, w io.Writer) (int64, error) {
	if inum == 0 {
		return 0, app.NewError(app.ErrCodeInvalidInput, "inode number is required", nil)
	}
	reader, meta, err := s.FS.OpenFile(types.InumT(inum))
	if err != nil {
		return 0, app.Classify(fmt.Sprintf("failed to open inode %d", inum), err)
	}
	if meta.IsDir() {
		ctx.Log(fmt.Sprintf("Inode %d is a directory; writing its raw content", inum))
	}

	n, err := io.Copy(w, reader)
	if err != nil {
		return n, app.Classify(fmt.Sprintf("failed to read inode %d", inum), err)
	}
	return n, nil
}

// scanChunk is one unit of scan work: a block range inside one group, or
// the leading blocks when group is types.GroupNone.
type scanChunk struct {
	group      uint32
	start, end types.DaddrT
}

type chunkResult struct {
	group  uint32
	counts BlockCounts
}

// Scan classifies every block of the filesystem. Work is split into chunks
// of at most ChunkBlocks blocks, none crossing a group boundary, and chunks
// run on a bounded worker pool.
func Scan(ctx *app.Context, s *Session, req *ScanRequest) (*ScanReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	startTime := time.Now()
	fs := s.FS

	chunks := planChunks(fs, req.ChunkBlocks)
	ctx.Log(fmt.Sprintf("Scanning %d blocks in %d chunks with %d workers",
		uint64(fs.LastBlock()-fs.FirstBlock())+1, len(chunks), req.Workers))

	p := pool.NewWithResults[chunkResult]().
		WithContext(ctx).
		WithMaxGoroutines(req.Workers).
		WithCancelOnError()

	var (
		mu   sync.Mutex
		done int64
	)
	for _, c := range chunks {
		c := c
		p.Go(func(wctx context.Context) (chunkResult, error) {
			counts, err := countChunk(wctx, fs, c)
			if err != nil {
				return chunkResult{}, err
			}

			mu.Lock()
			done++
			ctx.Progress(app.ProgressUpdate{
				Message:     "scanning",
				Completed:   done,
				Total:       int64(len(chunks)),
				StartedAt:   startTime,
				ElapsedTime: time.Since(startTime),
			})
			mu.Unlock()
			return chunkResult{group: c.group, counts: counts}, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, app.Classify("scan failed", err)
	}

	r := &ScanReport{Workers: req.Workers, Chunks: len(chunks)}
	perGroup := make(map[uint32]*BlockCounts)
	for _, res := range results {
		if res.group == types.GroupNone {
			r.Leading.add(res.counts)
			continue
		}
		gc, ok := perGroup[res.group]
		if !ok {
			gc = &BlockCounts{}
			perGroup[res.group] = gc
		}
		gc.add(res.counts)
	}

	r.Totals.add(r.Leading)
	for g := uint32(0); g < fs.GroupCount(); g++ {
		first, last := fs.GroupRange(g)
		gs := GroupScan{Group: g, FirstBlock: uint64(first), LastBlock: uint64(last), DescriptorFree: -1}
		if gc, ok := perGroup[g]; ok {
			gs.BlockCounts = *gc
		}
		if desc, err := fs.GroupDescriptor(g); err == nil {
			gs.DescriptorFree = int64(desc.FreeBlocksCount())
			gs.Mismatch = uint64(gs.DescriptorFree) != gs.Unalloc
		}
		r.Totals.add(gs.BlockCounts)
		r.Groups = append(r.Groups, gs)
	}
	sort.Slice(r.Groups, func(i, j int) bool { return r.Groups[i].Group < r.Groups[j].Group })

	r.Elapsed = time.Since(startTime)
	ctx.Log(fmt.Sprintf("Scan completed in %v", r.Elapsed))
	return r, nil
}

// planChunks splits the block address space into scan chunks
func planChunks(fs *services.Filesystem, size uint64) []scanChunk {
	var chunks []scanChunk
	split := func(group uint32, first, last types.DaddrT) {
		for start := first; start <= last; {
			end := last
			if uint64(last-start) >= size {
				end = start + types.DaddrT(size) - 1
			}
			chunks = append(chunks, scanChunk{group: group, start: start, end: end})
			if end == last {
				break
			}
			start = end + 1
		}
	}

	if fs.FirstDataBlock() > fs.FirstBlock() {
		split(types.GroupNone, fs.FirstBlock(), fs.FirstDataBlock()-1)
	}
	for g := uint32(0); g < fs.GroupCount(); g++ {
		first, last := fs.GroupRange(g)
		if first > fs.LastBlock() {
			break
		}
		split(g, first, last)
	}
	return chunks
}

// countChunk tallies the classifications of one chunk
func countChunk(ctx context.Context, fs *services.Filesystem, c scanChunk) (BlockCounts, error) {
	var counts BlockCounts
	err := fs.WalkBlocks(c.start, c.end, types.BlockWalkFlagAddrOnly, func(b *types.Block) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		counts.Blocks++
		if b.Flags&types.BlockFlagAlloc != 0 {
			counts.Alloc++
		}
		if b.Flags&types.BlockFlagUnalloc != 0 {
			counts.Unalloc++
		}
		if b.Flags&types.BlockFlagMeta != 0 {
			counts.Meta++
		}
		if b.Flags&types.BlockFlagCont != 0 {
			counts.Content++
		}
		return nil
	})
	return counts, err
}

var (
	_ interfaces.FSStatter    = (*Reporter)(nil)
	_ interfaces.InodeStatter = (*Reporter)(nil)
)

// Reporter writes filesystem and inode reports in one output format
type Reporter struct {
	ctx     *app.Context
	session *Session
	format  string
}

// NewReporter creates a reporter for an open session
func NewReporter(ctx *app.Context, session *Session, format string) *Reporter {
	return &Reporter{ctx: ctx, session: session, format: format}
}

// FSStat writes the filesystem summary to w
func (r *Reporter) FSStat(w io.Writer) error {
	report, err := FSStat(r.ctx, r.session)
	if err != nil {
		return err
	}
	return FormatOutput(w, report, r.format)
}

// IStat writes the report for inum to w
func (r *Reporter) IStat(w io.Writer, inum types.InumT) error {
	report, err := IStat(r.ctx, r.session, &IStatRequest{Inode: uint64(inum)})
	if err != nil {
		return err
	}
	return FormatOutput(w, report, r.format)
}
