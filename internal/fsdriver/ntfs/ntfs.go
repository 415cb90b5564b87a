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

// Package ntfs recognizes NTFS partitions by their boot-sector OEM ID
// but does not walk them: NTFS is a named external collaborator in the
// spec this decoder implements, not a supported tree walk.
package ntfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/scafiti/diskdigler/internal/diskio"
	"github.com/scafiti/diskdigler/internal/document"
	"github.com/scafiti/diskdigler/internal/fserrors"
	"github.com/scafiti/diskdigler/internal/fsdriver"
)

var oemID = []byte("NTFS    ")

type Driver struct{}

func (Driver) Name() fsdriver.Kind { return fsdriver.KindNTFS }

func (Driver) Probe(ctx context.Context, r *diskio.ByteReader, partitionOffset uint64) (fsdriver.FileSystem, error) {
	buf, err := r.ReadExact(int64(partitionOffset)+3, 8)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(buf, oemID) {
		return nil, fmt.Errorf("ntfs: OEM id mismatch: %w", fserrors.BadMagic)
	}
	return &fileSystem{}, nil
}

type fileSystem struct{}

func (fileSystem) Kind() fsdriver.Kind { return fsdriver.KindNTFS }

func (fileSystem) SerializeFS(w *document.Writer) {
	w.EmitString("fs", "ntfs")
	w.EmitBool("supported", false)
}

func (fileSystem) Cleanup() {}

func (fileSystem) WalkAndSerializeTree(ctx context.Context, r *diskio.ByteReader, emit func(*fsdriver.FileRecord), diag fsdriver.DiagFunc) error {
	return fmt.Errorf("ntfs: tree walk not implemented: %w", fserrors.Unsupported)
}
