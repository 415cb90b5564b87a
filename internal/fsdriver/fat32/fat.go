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
	"encoding/binary"

	"github.com/scafiti/diskdigler/internal/diskio"
)

// entryClass classifies a masked 28-bit FAT32 entry value.
type entryClass int

const (
	classFree entryClass = iota
	classReserved
	classInUse
	classBad
	classEndOfChain
)

func classify(v uint32) entryClass {
	switch {
	case v == 0:
		return classFree
	case v == 1:
		return classReserved
	case v == badCluster:
		return classBad
	case v >= eocThreshold:
		return classEndOfChain
	default:
		return classInUse
	}
}

// getFATEntry reads cluster k's 32-bit FAT entry and masks it to the
// meaningful low 28 bits. The reader takes an explicit offset on every
// call, so interleaving this with directory reads never disturbs a
// shared cursor — there isn't one.
func getFATEntry(r *diskio.ByteReader, partitionOffset uint64, b *bpb, k uint32) (uint32, error) {
	buf, err := r.ReadExact(int64(b.fatEntryOffset(partitionOffset, k)), 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf) & 0x0FFFFFFF, nil
}

// clusterChain follows the FAT from start until an end-of-chain
// sentinel, a bad or free sentinel mid-chain (reported as truncated but
// not fatal — the accumulated prefix is returned), or maxClusters is
// exceeded (a cycle guard for corrupt chains that never terminate).
func clusterChain(r *diskio.ByteReader, partitionOffset uint64, b *bpb, start uint32, maxClusters int) ([]uint32, bool, error) {
	if start < firstDataClust {
		return nil, true, nil // clusters 0 and 1 are reserved, never dereferenced
	}

	var chain []uint32
	cur := start
	for i := 0; i < maxClusters; i++ {
		chain = append(chain, cur)
		next, err := getFATEntry(r, partitionOffset, b, cur)
		if err != nil {
			return chain, false, err
		}
		switch classify(next) {
		case classEndOfChain:
			return chain, true, nil
		case classBad, classFree, classReserved:
			return chain, false, nil // diagnostic-worthy, not a hard error
		default:
			cur = next
		}
	}
	return chain, false, nil
}
