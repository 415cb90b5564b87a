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
package disk

// Partition describes one MBR table slot resolved to absolute byte
// coordinates on the disk image, ready to hand to a file system driver's
// Probe.
type Partition struct {
	Num       int // 1-based position among the used table slots, in table order
	Type      MBRPartition
	Offset    uint64 // byte offset of the first sector from the start of the disk
	Size      uint64 // partition size in bytes
	BlockSize uint32 // sector size assumed while decoding this partition
	Entry     *MBRPartitionEntry
}

// PartitionsFromMBR resolves every used table slot in m to a Partition
// with absolute byte coordinates, numbered from 1 in table order; empty
// slots are skipped and take no number.
func PartitionsFromMBR(m *MBR) []Partition {
	entries := m.UsedPartitions()
	out := make([]Partition, 0, len(entries))
	for i, e := range entries {
		out = append(out, Partition{
			Num:       i + 1,
			Type:      e.PartitionType,
			Offset:    e.ByteOffset(),
			Size:      e.ByteSize(),
			BlockSize: DefaultBlocksize,
			Entry:     e,
		})
	}
	return out
}
