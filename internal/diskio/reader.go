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

// Package diskio provides the random-access byte reader every driver and
// the MBR decoder read an image through. It wraps an io.ReaderAt with
// 64-bit-offset, whole-read semantics: a short read is always a hard
// Truncated error, never a partial result silently handed back.
package diskio

import (
	"errors"
	"fmt"
	"io"

	"github.com/scafiti/diskdigler/internal/fserrors"
)

// ByteReader is a positioned read surface over a block image. It imposes
// no caching requirement beyond what callers do themselves. It holds no
// cursor: every read takes its offset explicitly, so the FAT32 driver can
// interleave FAT lookups with directory reads without saving or restoring
// a position.
type ByteReader struct {
	src  io.ReaderAt
	size int64
}

// New wraps src, whose total addressable length is size bytes.
func New(src io.ReaderAt, size int64) *ByteReader {
	return &ByteReader{src: src, size: size}
}

// Size returns the image's total length in bytes.
func (r *ByteReader) Size() int64 { return r.size }

// ReadAt reads exactly len(p) bytes starting at off. A short read from
// the underlying source is reported as fserrors.Truncated; any other
// failure is reported as fserrors.Io.
func (r *ByteReader) ReadAt(p []byte, off int64) error {
	if off < 0 {
		return fmt.Errorf("diskio: negative offset %d: %w", off, fserrors.Invariant)
	}
	n, err := r.src.ReadAt(p, off)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(p)) {
		if n < len(p) {
			return fmt.Errorf("diskio: short read at 0x%x (%d/%d bytes): %w", off, n, len(p), fserrors.Truncated)
		}
		return fmt.Errorf("diskio: read at 0x%x: %w: %v", off, fserrors.Io, err)
	}
	return nil
}

// ReadExact is a convenience that allocates and returns the n bytes read
// at off.
func (r *ByteReader) ReadExact(off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := r.ReadAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}

// InBounds reports whether the half-open byte range [off, off+n) lies
// entirely within the image.
func (r *ByteReader) InBounds(off int64, n int64) bool {
	return off >= 0 && n >= 0 && off+n <= r.size
}
