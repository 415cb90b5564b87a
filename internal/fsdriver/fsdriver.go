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

// Package fsdriver declares the capability set every file-system driver
// implements (probe, serialize_fs, walk_and_serialize_tree, cleanup) and
// the data each driver hands back to the pipeline: a tagged FileSystem
// value and a stream of FileRecords discovered while walking it.
package fsdriver

import (
	"context"
	"time"

	"github.com/scafiti/diskdigler/internal/diskio"
	"github.com/scafiti/diskdigler/internal/document"
	"github.com/scafiti/diskdigler/internal/fserrors"
)

// Kind tags which concrete file system a FileSystem value describes.
type Kind int

const (
	KindUnknown Kind = iota
	KindExt2
	KindFAT32
	KindNTFS
)

func (k Kind) String() string {
	switch k {
	case KindExt2:
		return "ext2"
	case KindFAT32:
		return "fat32"
	case KindNTFS:
		return "ntfs"
	default:
		return "unknown"
	}
}

// FileRecord is one file or directory discovered while walking a file
// system's tree. Identifiers are assigned in walk order starting at 0
// for the root and are unique within one partition's walk.
type FileRecord struct {
	ID       uint64
	ParentID uint64
	Name     string
	Path     string
	IsDir    bool
	Size     uint64
	ATime    time.Time
	MTime    time.Time
	CTime    time.Time
	Sectors  []uint64

	// InodeSector/InodeOffset locate the directory entry or inode record
	// that produced this FileRecord, so a consumer can relocate the
	// source structure on the image. Not every driver populates both.
	InodeSector uint64
	InodeOffset uint32
}

// DiagFunc receives a non-fatal diagnostic raised while probing or
// walking. It never stops the walk; the pipeline logs it and continues.
type DiagFunc func(*fserrors.Diag)

// FileSystem is a successfully probed file system instance, scoped to
// one partition for the lifetime of its processing.
type FileSystem interface {
	Kind() Kind

	// SerializeFS emits the top-level descriptor record for this file
	// system: fs kind, block/cluster size, counts. It does not touch the
	// image.
	SerializeFS(w *document.Writer)

	// WalkAndSerializeTree performs a depth-first traversal starting at
	// the root, emitting one document record per file/directory found
	// via emit. Traversal order is driver-defined but stable for a given
	// image. A BadMagic error is never returned here; Io, Truncated and
	// Cancelled abort the walk early, a recognized-but-unwalked format
	// returns Unsupported, and everything else is reported via diag and
	// skipped.
	WalkAndSerializeTree(ctx context.Context, r *diskio.ByteReader, emit func(*FileRecord), diag DiagFunc) error

	// Cleanup releases driver-owned resources (scratch buffers, open
	// handles). Safe to call even if probing or walking failed partway.
	Cleanup()
}

// Driver probes a partition for one concrete file system. Probe reads a
// small, fixed prefix and validates magic numbers without mutating any
// writer state; a non-match returns an error (wrapping fserrors.BadMagic
// when the magic number itself does not match, or Invariant/Truncated
// when a field or read rules the candidate out) and the pipeline moves on
// to the next driver in dispatch order.
type Driver interface {
	Name() Kind
	Probe(ctx context.Context, r *diskio.ByteReader, partitionOffset uint64) (FileSystem, error)
}
