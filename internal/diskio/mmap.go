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
package diskio

import (
	"fmt"
	"io"

	"github.com/scafiti/diskdigler/pkg/mmap"
)

// mmapReaderAt adapts an mmap.MmapFile, whose natural access pattern is
// slice indexing, to the io.ReaderAt contract ByteReader expects.
type mmapReaderAt struct {
	m *mmap.MmapFile
}

func (m *mmapReaderAt) ReadAt(p []byte, off int64) (int, error) {
	start := off - int64(m.m.MappedOffset)
	if start < 0 || start >= int64(len(m.m.Data)) {
		return 0, io.EOF
	}
	n := copy(p, m.m.Data[start:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// OpenMmap memory-maps path in full and returns a ByteReader backed by
// the mapping plus a closer to release it. Large images benefit from
// this over repeated ReadAt syscalls; tests wrap in-memory images with
// New instead.
func OpenMmap(path string) (*ByteReader, io.Closer, error) {
	m, err := mmap.NewMmapFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("diskio: mmap %q: %w", path, err)
	}
	return New(&mmapReaderAt{m: m}, int64(m.FileSize)), m, nil
}
