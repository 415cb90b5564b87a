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
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/scafiti/diskdigler/internal/diskio"
	"github.com/scafiti/diskdigler/internal/fserrors"
)

const groupDescSize = 32

// readGroupDescs loads every block-group descriptor, starting at the
// block immediately following the superblock.
func readGroupDescs(r *diskio.ByteReader, partitionOffset uint64, sb *superblock) ([]groupDesc, error) {
	bs := sb.blockSize()
	// The superblock always lives at byte offset 1024. With a 1024-byte
	// block size that's block 1, so the descriptor table (which follows
	// immediately after) starts at block 2; for any larger block size
	// the superblock itself is block 0, so the table starts at block 1.
	tableBlock := uint32(2)
	if bs > 1024 {
		tableBlock = 1
	}
	count := sb.groupCount()
	if count == 0 {
		return nil, fmt.Errorf("ext2: zero block groups: %w", fserrors.Invariant)
	}

	tableBytes := count * groupDescSize
	off := int64(partitionOffset) + int64(tableBlock)*int64(bs)
	buf, err := r.ReadExact(off, int(tableBytes))
	if err != nil {
		return nil, err
	}

	out := make([]groupDesc, count)
	rdr := bytes.NewReader(buf)
	for i := range out {
		if err := binary.Read(rdr, binary.LittleEndian, &out[i]); err != nil {
			return nil, fmt.Errorf("ext2: decode group descriptor %d: %w: %v", i, fserrors.Io, err)
		}
	}
	return out, nil
}

// readInode resolves and decodes inode number n (1-based).
func readInode(r *diskio.ByteReader, partitionOffset uint64, sb *superblock, groups []groupDesc, n uint32) (*inode, error) {
	if n == 0 {
		return nil, fmt.Errorf("ext2: inode 0 is invalid: %w", fserrors.Invariant)
	}
	group := (n - 1) / sb.InodesPerGroup
	index := (n - 1) % sb.InodesPerGroup
	if int(group) >= len(groups) {
		return nil, fmt.Errorf("ext2: inode %d group %d out of range: %w", n, group, fserrors.Invariant)
	}

	bs := sb.blockSize()
	isz := sb.inodeSize()
	off := int64(partitionOffset) + int64(groups[group].InodeTable)*int64(bs) + int64(index)*int64(isz)

	buf, err := r.ReadExact(off, inodeSize128)
	if err != nil {
		return nil, err
	}
	var ino inode
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &ino); err != nil {
		return nil, fmt.Errorf("ext2: decode inode %d: %w: %v", n, fserrors.Io, err)
	}
	return &ino, nil
}

func readBlock(r *diskio.ByteReader, partitionOffset uint64, sb *superblock, blockNum uint32) ([]byte, error) {
	off := int64(partitionOffset) + int64(blockNum)*int64(sb.blockSize())
	return r.ReadExact(off, int(sb.blockSize()))
}

// visitBlocks enumerates ino's logical block numbers in order, calling
// visit for each non-hole entry. It walks the twelve direct pointers
// then the singly/doubly/triply-indirect trees, reading each indirect
// block lazily rather than materializing the whole map up front. visit
// returning an error aborts enumeration and the error propagates; a
// zero-valued pointer encountered anywhere is a hole and is skipped
// without calling visit.
func visitBlocks(r *diskio.ByteReader, partitionOffset uint64, sb *superblock, ino *inode, visit func(blockNum uint32) error) error {
	ptrsPerBlock := sb.blockSize() / 4

	for _, b := range ino.Block[:12] {
		if b == 0 {
			continue
		}
		if err := checkPointer(sb, b); err != nil {
			return err
		}
		if err := visit(b); err != nil {
			return err
		}
	}

	var walkIndirect func(blockNum uint32, depth int) error
	walkIndirect = func(blockNum uint32, depth int) error {
		if blockNum == 0 {
			return nil
		}
		buf, err := readBlock(r, partitionOffset, sb, blockNum)
		if err != nil {
			return err
		}
		for i := uint32(0); i < ptrsPerBlock; i++ {
			ptr := binary.LittleEndian.Uint32(buf[i*4:])
			if ptr == 0 {
				continue
			}
			if err := checkPointer(sb, ptr); err != nil {
				return err
			}
			if depth == 0 {
				if err := visit(ptr); err != nil {
					return err
				}
			} else if err := walkIndirect(ptr, depth-1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walkIndirect(ino.Block[12], 0); err != nil { // singly-indirect
		return err
	}
	if err := walkIndirect(ino.Block[13], 1); err != nil { // doubly-indirect
		return err
	}
	if err := walkIndirect(ino.Block[14], 2); err != nil { // triply-indirect
		return err
	}
	return nil
}

func checkPointer(sb *superblock, block uint32) error {
	if block >= sb.BlocksCount {
		return fmt.Errorf("ext2: block pointer %d exceeds blocks_count %d: %w", block, sb.BlocksCount, fserrors.Invariant)
	}
	return nil
}
