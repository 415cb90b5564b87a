// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package pipeline orchestrates a single run: open the image, parse the
// MBR, dispatch each partition to the first file-system driver that
// claims it, and stream the resulting document to a sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/scafiti/diskdigler/internal/disk"
	"github.com/scafiti/diskdigler/internal/diskio"
	"github.com/scafiti/diskdigler/internal/document"
	"github.com/scafiti/diskdigler/internal/env"
	"github.com/scafiti/diskdigler/internal/fs"
	"github.com/scafiti/diskdigler/internal/fserrors"
	"github.com/scafiti/diskdigler/internal/fsdriver"
	"github.com/scafiti/diskdigler/internal/fsdriver/ext2"
	"github.com/scafiti/diskdigler/internal/fsdriver/fat32"
	"github.com/scafiti/diskdigler/internal/fsdriver/ntfs"
	"github.com/scafiti/diskdigler/internal/logger"
	"github.com/scafiti/diskdigler/pkg/sysinfo"
)

// drivers lists the file-system drivers in probe order. ext2 and fat32
// are walked; ntfs is recognized but never claims ownership of the walk
// step (its WalkAndSerializeTree always reports Unsupported).
func drivers() []fsdriver.Driver {
	return []fsdriver.Driver{ext2.Driver{}, fat32.Driver{}, ntfs.Driver{}}
}

// Options configures one pipeline run.
type Options struct {
	MaxPartitions int // safety cap on the MBR table; always 4 in practice
	Log           *logger.Logger
}

// DefaultOptions returns the options a plain CLI invocation uses.
func DefaultOptions() Options {
	return Options{MaxPartitions: 4, Log: logger.New(os.Stderr, logger.InfoLevel)}
}

// Run decodes imagePath and writes the resulting document to outPath.
// It always closes the output file before returning, including on
// error, so a failed run still leaves whatever was written intact.
func Run(ctx context.Context, imagePath, outPath string, opts Options) error {
	if opts.Log == nil {
		opts.Log = logger.New(os.Stderr, logger.InfoLevel)
	}

	imgFile, err := fs.Open(disk.NormalizeVolumePath(imagePath))
	if err != nil {
		return fmt.Errorf("pipeline: open image: %w: %v", fserrors.Io, err)
	}
	defer imgFile.Close()

	stat, err := imgFile.Stat()
	if err != nil {
		return fmt.Errorf("pipeline: stat image: %w: %v", fserrors.Io, err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("pipeline: create output: %w: %v", fserrors.Io, err)
	}
	defer out.Close()

	r := diskio.New(imgFile, stat.Size())
	w := document.NewWriter()
	w.BeginDoc()
	emitHostRecord(w, imagePath, stat.Size())

	if err := runMBR(ctx, r, w, opts); err != nil {
		// Flush whatever was accumulated before the pipeline fails a hard
		// error, so a truncated image still yields a usable partial document.
		_ = w.Flush(out)
		return err
	}
	return w.Flush(out)
}

// emitHostRecord writes a small metadata header ahead of the MBR record,
// identifying the tool and the host that produced the document.
func emitHostRecord(w *document.Writer, imagePath string, imageSize int64) {
	w.BeginNestedDoc("host")
	w.EmitString("app", env.AppName)
	w.EmitString("version", env.Version)
	w.EmitString("image_path", imagePath)
	w.EmitInt64("image_size", imageSize)

	info, err := sysinfo.Stat()
	if err != nil {
		info = &sysinfo.SysUnknown
	}
	w.EmitString("os", info.Name)
	w.EmitString("os_release", info.Release)
	w.EmitString("os_version", info.Version)

	if err := w.EndDoc(); err != nil {
		panic(err)
	}
}

func runMBR(ctx context.Context, r *diskio.ByteReader, w *document.Writer, opts Options) error {
	mbrBytes, err := r.ReadExact(0, 512)
	if err != nil {
		return err
	}
	mbr, err := disk.ParseMBR(mbrBytes)
	if err != nil {
		return fmt.Errorf("pipeline: parse MBR: %w: %v", fserrors.BadMagic, err)
	}

	partitions := disk.PartitionsFromMBR(mbr)
	if opts.MaxPartitions > 0 && len(partitions) > opts.MaxPartitions {
		partitions = partitions[:opts.MaxPartitions]
	}

	// A partition counts as active only if some driver recognizes it; the
	// count is taken in a first pass, before any partition is walked.
	active := 0
	for _, p := range partitions {
		if !r.InBounds(int64(p.Offset), int64(p.Size)) {
			continue
		}
		if fsys, _ := probePartition(ctx, r, p.Offset); fsys != nil {
			fsys.Cleanup()
			active++
		}
	}

	w.EmitInt32("active_partitions", int32(active))
	w.EmitInt64("disk_signature", int64(mbr.ReadDiskSignature()))

	w.BeginArray("partitions")
	for _, p := range partitions {
		if err := ctx.Err(); err != nil {
			_ = w.EndArray()
			return fmt.Errorf("pipeline: %w", fserrors.Cancelled)
		}
		if !r.InBounds(int64(p.Offset), int64(p.Size)) {
			opts.Log.Warnf("partition %d: declared range extends past image size, skipping", p.Num)
			continue
		}
		runPartition(ctx, r, w, p, opts)
	}
	return w.EndArray()
}

func runPartition(ctx context.Context, r *diskio.ByteReader, w *document.Writer, p disk.Partition, opts Options) {
	w.BeginNestedDoc("")
	defer func() {
		if err := w.EndDoc(); err != nil {
			opts.Log.Errorf("partition %d: closing record: %v", p.Num, err)
		}
	}()

	w.EmitInt32("num", int32(p.Num))
	w.EmitInt64("offset", int64(p.Offset))
	w.EmitInt64("size", int64(p.Size))

	diag := func(d *fserrors.Diag) {
		d.Partition = p.Num
		opts.Log.Warnf("%v", d)
	}

	fsys, driverErr := probePartition(ctx, r, p.Offset)
	if fsys == nil {
		opts.Log.Infof("partition %d: no supported file system recognized: %v", p.Num, driverErr)
		return
	}
	defer fsys.Cleanup()

	fsys.SerializeFS(w)

	w.BeginArray("files")
	walkErr := fsys.WalkAndSerializeTree(ctx, r, func(rec *fsdriver.FileRecord) {
		emitFileRecord(w, rec)
	}, diag)
	if err := w.EndArray(); err != nil {
		opts.Log.Errorf("partition %d: closing file array: %v", p.Num, err)
	}

	if walkErr != nil {
		switch {
		case errors.Is(walkErr, fserrors.Unsupported):
			opts.Log.Infof("partition %d: %s recognized but not walked", p.Num, fsys.Kind())
		case errors.Is(walkErr, fserrors.Cancelled):
			opts.Log.Warnf("partition %d: cancelled mid-walk", p.Num)
		default:
			opts.Log.Errorf("partition %d: walk aborted: %v", p.Num, walkErr)
		}
	}
}

// probePartition tries each driver in dispatch order and returns the
// first to claim the partition. A BadMagic from one driver is expected
// and silent; any other error from a probe is still treated as a
// non-match (the partition is simply unrecognized) but is surfaced in
// the returned error for logging.
func probePartition(ctx context.Context, r *diskio.ByteReader, partitionOffset uint64) (fsdriver.FileSystem, error) {
	var lastErr error
	for _, d := range drivers() {
		fsys, err := d.Probe(ctx, r, partitionOffset)
		if err == nil {
			return fsys, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func emitFileRecord(w *document.Writer, rec *fsdriver.FileRecord) {
	w.BeginNestedDoc("")
	w.EmitInt64("id", int64(rec.ID))
	w.EmitInt64("parent_id", int64(rec.ParentID))
	w.EmitString("name", rec.Name)
	w.EmitString("path", rec.Path)
	w.EmitBool("is_dir", rec.IsDir)
	w.EmitUint64("size", rec.Size)
	w.EmitSectorList("sectors", rec.Sectors)
	w.EmitUint64("inode_sector", rec.InodeSector)
	w.EmitInt32("inode_offset", int32(rec.InodeOffset))
	if !rec.MTime.IsZero() {
		w.EmitInt64("mtime", rec.MTime.Unix())
	}
	if !rec.CTime.IsZero() {
		w.EmitInt64("ctime", rec.CTime.Unix())
	}
	if !rec.ATime.IsZero() {
		w.EmitInt64("atime", rec.ATime.Unix())
	}
	if err := w.EndDoc(); err != nil {
		// Unreachable in practice: BeginNestedDoc/EndDoc are always paired
		// above, so a mismatch here would indicate a Writer bug, not bad
		// input data.
		panic(err)
	}
}
