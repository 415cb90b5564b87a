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
package fat32

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/scafiti/diskdigler/internal/diskio"
	"github.com/scafiti/diskdigler/internal/document"
	"github.com/scafiti/diskdigler/internal/fserrors"
	"github.com/scafiti/diskdigler/internal/fsdriver"
)

// maxDirDepth and maxChainClusters bound recursion and FAT chain length
// against cyclic, corrupt images.
const (
	maxDirDepth      = 256
	maxChainClusters = 1 << 22

	// docSectorSize is the fixed 512-byte unit the emitted document's
	// sector lists and inode_sector/inode_offset fields are expressed in
	// (spec glossary, "Sector"), independent of the volume's own
	// bytes_per_sector.
	docSectorSize = 512
)

type Driver struct{}

func (Driver) Name() fsdriver.Kind { return fsdriver.KindFAT32 }

func (Driver) Probe(ctx context.Context, r *diskio.ByteReader, partitionOffset uint64) (fsdriver.FileSystem, error) {
	b, err := readBPB(r, partitionOffset)
	if err != nil {
		return nil, err
	}
	return &fileSystem{partitionOffset: partitionOffset, bpb: b, nextID: 1}, nil
}

type fileSystem struct {
	partitionOffset uint64
	bpb             *bpb
	nextID          uint64
}

func (fs *fileSystem) Kind() fsdriver.Kind { return fsdriver.KindFAT32 }

func (fs *fileSystem) SerializeFS(w *document.Writer) {
	w.EmitString("fs", "fat32")
	w.EmitInt32("bytes_per_sector", int32(fs.bpb.BytesPerSector))
	w.EmitInt32("sectors_per_cluster", int32(fs.bpb.SectorsPerCluster))
	w.EmitInt32("cluster_size", int32(fs.bpb.clusterSize()))
	w.EmitInt32("num_fats", int32(fs.bpb.NumFATs))
	w.EmitInt64("root_cluster", int64(fs.bpb.RootDirCluster))
}

func (fs *fileSystem) Cleanup() {}

func (fs *fileSystem) WalkAndSerializeTree(ctx context.Context, r *diskio.ByteReader, emit func(*fsdriver.FileRecord), diag fsdriver.DiagFunc) error {
	w := &walker{fs: fs, r: r, emit: emit, diag: diag, visited: make(map[uint32]bool)}
	return w.walkDir(ctx, fs.bpb.RootDirCluster, 0, "", 0)
}

type walker struct {
	fs      *fileSystem
	r       *diskio.ByteReader
	emit    func(*fsdriver.FileRecord)
	diag    fsdriver.DiagFunc
	visited map[uint32]bool
}

func (w *walker) nextID() uint64 {
	id := w.fs.nextID
	w.fs.nextID++
	return id
}

// walkDir scans every cluster in startCluster's chain, reassembling
// short/long directory entries and recursing into subdirectories.
func (w *walker) walkDir(ctx context.Context, startCluster uint32, depth int, dirPath string, parentID uint64) error {
	if depth > maxDirDepth {
		w.diag(fserrors.NewDiag(0, "fat32", w.fs.bpb.clusterOffset(w.fs.partitionOffset, startCluster), fmt.Errorf("directory depth exceeds %d: %w", maxDirDepth, fserrors.Invariant)))
		return nil
	}
	if w.visited[startCluster] {
		return nil
	}
	w.visited[startCluster] = true

	chain, complete, err := clusterChain(w.r, w.fs.partitionOffset, w.fs.bpb, startCluster, maxChainClusters)
	if err != nil {
		return err
	}
	if !complete {
		w.diag(fserrors.NewDiag(0, "fat32", w.fs.bpb.clusterOffset(w.fs.partitionOffset, startCluster), fmt.Errorf("directory cluster chain did not terminate cleanly: %w", fserrors.Invariant)))
	}

	acc := newLongNameAccumulator()
	for _, cl := range chain {
		select {
		case <-ctx.Done():
			return fmt.Errorf("fat32: %w", fserrors.Cancelled)
		default:
		}

		buf, err := w.r.ReadExact(int64(w.fs.bpb.clusterOffset(w.fs.partitionOffset, cl)), int(w.fs.bpb.clusterSize()))
		if err != nil {
			return err
		}

		endOfDir := false
		for slotIdx, slot := range readDirBlock(buf) {
			select {
			case <-ctx.Done():
				return fmt.Errorf("fat32: %w", fserrors.Cancelled)
			default:
			}
			raw, status := parseRawEntry(slot)
			if status == statusEnd {
				endOfDir = true
				break
			}
			if status == statusDeleted {
				continue
			}
			if raw.IsLong {
				acc.add(raw.Ordinal, raw.LongChars)
				continue
			}
			if raw.isVolume() {
				acc.reset()
				continue
			}

			name := raw.ShortName
			if !acc.empty() {
				name = acc.join()
				acc.reset()
			}
			if name == "." || name == ".." {
				continue
			}

			slotOffset := w.fs.bpb.clusterOffset(w.fs.partitionOffset, cl) + uint64(slotIdx*dirEntrySize)
			if err := w.visitEntry(ctx, raw, name, depth, dirPath, parentID, slotOffset); err != nil {
				if errors.Is(err, fserrors.Io) || errors.Is(err, fserrors.Truncated) || errors.Is(err, fserrors.Cancelled) {
					return err
				}
				w.diag(fserrors.NewDiag(0, "fat32", slotOffset, err))
			}
		}
		if endOfDir {
			break
		}
	}
	return nil
}

func (w *walker) visitEntry(ctx context.Context, raw rawDirEntry, name string, depth int, dirPath string, parentID uint64, slotOffset uint64) error {
	id := w.nextID()
	childPath := path.Join(dirPath, name)

	if raw.isDir() {
		w.emit(&fsdriver.FileRecord{
			ID: id, ParentID: parentID, Name: name, Path: childPath, IsDir: true,
			InodeSector: slotOffset / docSectorSize,
			InodeOffset: uint32(slotOffset % docSectorSize),
		})
		return w.walkDir(ctx, raw.cluster(), depth+1, childPath, id)
	}

	sectors, complete, err := fileSectors(w.fs, w.r, raw.cluster(), raw.FileSize)
	if err != nil {
		return err
	}
	if !complete {
		w.diag(fserrors.NewDiag(0, "fat32", slotOffset, fmt.Errorf("file cluster chain did not terminate cleanly: %w", fserrors.Invariant)))
	}
	w.emit(&fsdriver.FileRecord{
		ID: id, ParentID: parentID, Name: name, Path: childPath, IsDir: false,
		Size:        uint64(raw.FileSize),
		Sectors:     sectors,
		InodeSector: slotOffset / docSectorSize,
		InodeOffset: uint32(slotOffset % docSectorSize),
	})
	return nil
}

// fileSectors follows the file's cluster chain and expands each cluster
// into its constituent 512-byte sector numbers (the document's fixed
// sector unit, regardless of the volume's own bytes_per_sector), absolute
// from the start of the disk image. A zero-size file yields an empty list
// without its chain being read.
func fileSectors(fs *fileSystem, r *diskio.ByteReader, startCluster uint32, size uint32) ([]uint64, bool, error) {
	if size == 0 {
		return nil, true, nil
	}
	chain, complete, err := clusterChain(r, fs.partitionOffset, fs.bpb, startCluster, maxChainClusters)
	if err != nil {
		return nil, false, err
	}
	docSectorsPerCluster := uint64(fs.bpb.clusterSize()) / docSectorSize

	var sectors []uint64
	for _, cl := range chain {
		base := fs.bpb.clusterOffset(fs.partitionOffset, cl) / docSectorSize
		for i := uint64(0); i < docSectorsPerCluster; i++ {
			sectors = append(sectors, base+i)
		}
	}
	return sectors, complete, nil
}
