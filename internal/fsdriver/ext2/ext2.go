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
package ext2

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/scafiti/diskdigler/internal/diskio"
	"github.com/scafiti/diskdigler/internal/document"
	"github.com/scafiti/diskdigler/internal/fserrors"
	"github.com/scafiti/diskdigler/internal/fsdriver"
)

// maxDirDepth bounds directory recursion to defeat cycles in corrupt
// images; ext2 also tracks the inode numbers of visited directories.
const maxDirDepth = 256

// Driver is the fsdriver.Driver implementation for ext2.
type Driver struct{}

func (Driver) Name() fsdriver.Kind { return fsdriver.KindExt2 }

func (Driver) Probe(ctx context.Context, r *diskio.ByteReader, partitionOffset uint64) (fsdriver.FileSystem, error) {
	sb, err := readSuperblock(r, partitionOffset)
	if err != nil {
		return nil, err
	}
	groups, err := readGroupDescs(r, partitionOffset, sb)
	if err != nil {
		return nil, err
	}
	return &fileSystem{partitionOffset: partitionOffset, sb: sb, groups: groups, nextID: 1}, nil
}

// fileSystem is one probed ext2 instance, scoped to a single partition.
type fileSystem struct {
	partitionOffset uint64
	sb              *superblock
	groups          []groupDesc
	nextID          uint64
}

func (fs *fileSystem) Kind() fsdriver.Kind { return fsdriver.KindExt2 }

func (fs *fileSystem) SerializeFS(w *document.Writer) {
	w.EmitString("fs", "ext2")
	w.EmitInt32("block_size", int32(fs.sb.blockSize()))
	w.EmitInt32("inode_size", int32(fs.sb.inodeSize()))
	w.EmitInt64("inodes_count", int64(fs.sb.InodesCount))
	w.EmitInt64("blocks_count", int64(fs.sb.BlocksCount))
	w.EmitInt32("block_group_count", int32(fs.sb.groupCount()))
}

func (fs *fileSystem) Cleanup() {}

func (fs *fileSystem) WalkAndSerializeTree(ctx context.Context, r *diskio.ByteReader, emit func(*fsdriver.FileRecord), diag fsdriver.DiagFunc) error {
	rootIno, err := readInode(r, fs.partitionOffset, fs.sb, fs.groups, rootInode)
	if err != nil {
		return err
	}

	visited := make(map[uint32]bool)
	w := &walker{fs: fs, r: r, emit: emit, diag: diag, visited: visited}
	return w.walkDir(ctx, rootInode, rootIno, 0, "", 0, 0)
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

// walkDir walks the directory named by dirInodeNum/dirIno, whose own
// FileRecord was assigned selfID with parent parentID. depth bounds
// recursion against maxDirDepth.
func (w *walker) walkDir(ctx context.Context, dirInodeNum uint32, dirIno *inode, depth int, dirPath string, selfID, parentID uint64) error {
	if depth > maxDirDepth {
		w.diag(fserrors.NewDiag(0, "ext2", inodeByteOffset(w.fs, dirInodeNum), fmt.Errorf("directory depth exceeds %d: %w", maxDirDepth, fserrors.Invariant)))
		return nil
	}

	blockErr := visitBlocks(w.r, w.fs.partitionOffset, w.fs.sb, dirIno, func(blockNum uint32) error {
		select {
		case <-ctx.Done():
			return fmt.Errorf("ext2: %w", fserrors.Cancelled)
		default:
		}

		buf, err := readBlock(w.r, w.fs.partitionOffset, w.fs.sb, blockNum)
		if err != nil {
			return err
		}
		entries, parseErr := parseDirBlock(buf)
		if parseErr != nil {
			w.diag(fserrors.NewDiag(0, "ext2", uint64(blockNum)*uint64(w.fs.sb.blockSize()), fmt.Errorf("%w: %v", fserrors.Invariant, parseErr)))
			// entries decoded before the bad one are still processed below
		}

		for _, e := range entries {
			select {
			case <-ctx.Done():
				return fmt.Errorf("ext2: %w", fserrors.Cancelled)
			default:
			}
			if e.Name == "." || e.Name == ".." {
				continue
			}
			if err := w.visitEntry(ctx, e, depth, dirPath, selfID); err != nil {
				if errorsIsHard(err) {
					return err
				}
				w.diag(fserrors.NewDiag(0, "ext2", inodeByteOffset(w.fs, e.Inode), err))
			}
		}
		return nil
	})
	if blockErr != nil && errorsIsHard(blockErr) {
		return blockErr
	} else if blockErr != nil {
		w.diag(fserrors.NewDiag(0, "ext2", inodeByteOffset(w.fs, dirInodeNum), blockErr))
	}
	return nil
}

func (w *walker) visitEntry(ctx context.Context, e dirEntry, depth int, dirPath string, parentID uint64) error {
	if w.visited[e.Inode] {
		return nil // cycle guard: a hard link or corrupt image re-referencing an inode
	}

	childIno, err := readInode(w.r, w.fs.partitionOffset, w.fs.sb, w.fs.groups, e.Inode)
	if err != nil {
		return err
	}

	childPath := path.Join(dirPath, e.Name)
	id := w.nextID()

	if childIno.isDir() {
		w.visited[e.Inode] = true
		w.emit(&fsdriver.FileRecord{
			ID: id, ParentID: parentID, Name: e.Name, Path: childPath,
			IsDir: true, MTime: unixTime(childIno.MTime), CTime: unixTime(childIno.CTime), ATime: unixTime(childIno.ATime),
			InodeSector: inodeByteOffset(w.fs, e.Inode) / 512,
		})
		return w.walkDir(ctx, e.Inode, childIno, depth+1, childPath, id, parentID)
	}

	if !childIno.isRegular() {
		return nil // symlinks, devices, fifos: not walked, not emitted
	}

	sectors, err := fileSectors(w.fs, w.r, childIno)
	if err != nil {
		return err
	}
	w.emit(&fsdriver.FileRecord{
		ID: id, ParentID: parentID, Name: e.Name, Path: childPath,
		IsDir: false, Size: childIno.size64(),
		MTime: unixTime(childIno.MTime), CTime: unixTime(childIno.CTime), ATime: unixTime(childIno.ATime),
		Sectors:     sectors,
		InodeSector: inodeByteOffset(w.fs, e.Inode) / 512,
	})
	return nil
}

// fileSectors translates the inode's logical block numbers into
// absolute 512-byte sector numbers from the start of the disk image.
func fileSectors(fs *fileSystem, r *diskio.ByteReader, ino *inode) ([]uint64, error) {
	sectorsPerBlock := uint64(fs.sb.blockSize()) / 512
	var sectors []uint64
	err := visitBlocks(r, fs.partitionOffset, fs.sb, ino, func(blockNum uint32) error {
		base := uint64(blockNum) * sectorsPerBlock
		for i := uint64(0); i < sectorsPerBlock; i++ {
			sectors = append(sectors, fs.partitionOffset/512+base+i)
		}
		return nil
	})
	return sectors, err
}

func inodeByteOffset(fs *fileSystem, n uint32) uint64 {
	group := (n - 1) / fs.sb.InodesPerGroup
	index := (n - 1) % fs.sb.InodesPerGroup
	if int(group) >= len(fs.groups) {
		return 0
	}
	return fs.partitionOffset + uint64(fs.groups[group].InodeTable)*uint64(fs.sb.blockSize()) + uint64(index)*uint64(fs.sb.inodeSize())
}

func unixTime(t uint32) time.Time {
	if t == 0 {
		return time.Time{}
	}
	return time.Unix(int64(t), 0).UTC()
}

// errorsIsHard reports whether err should abort the whole partition walk
// (Io, Truncated, Cancelled) rather than just being skipped-and-logged.
func errorsIsHard(err error) bool {
	return errors.Is(err, fserrors.Io) || errors.Is(err, fserrors.Truncated) || errors.Is(err, fserrors.Cancelled)
}
