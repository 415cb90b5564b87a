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
	"sort"
	"strings"
	"unicode/utf16"
)

const (
	dirEntrySize  = 32
	attrLongName  = 0x0F
	attrDirectory = 0x10
	attrVolumeID  = 0x08
	statusEnd     = 0x00
	statusDeleted = 0xE5
	lastLongFlag  = 0x40
)

// rawDirEntry is one decoded 32-byte slot, before short/long name
// reassembly: either a short (8.3) entry or a long-name fragment.
type rawDirEntry struct {
	IsLong      bool
	Ordinal     int // long-name entries only; 1-based position in the name
	LongChars   []uint16
	ShortName   string // "BASE.EXT", trimmed, empty extension dropped
	Attr        byte
	ClusterHigh uint16
	ClusterLow  uint16
	FileSize    uint32
}

// parseRawEntry decodes the 32 bytes at buf into a rawDirEntry and also
// returns the slot's status byte. For a status-0x00 (end of directory) or
// 0xE5 (deleted) slot the entry is left zero; the caller stops scanning on
// end-of-directory and simply skips deleted.
func parseRawEntry(buf []byte) (entry rawDirEntry, status byte) {
	status = buf[0]
	if status == statusEnd || status == statusDeleted {
		return rawDirEntry{}, status
	}

	attr := buf[11]
	if attr == attrLongName {
		// The 0x40 "last entry" bit only affects physical write order in
		// the source; keying fragments by ordinal makes it irrelevant here.
		ord := int(buf[0] &^ lastLongFlag)

		chars := make([]uint16, 0, 13)
		for _, off := range []int{1, 3, 5, 7, 9} {
			chars = append(chars, binary.LittleEndian.Uint16(buf[off:]))
		}
		for off := 14; off <= 25; off += 2 {
			chars = append(chars, binary.LittleEndian.Uint16(buf[off:]))
		}
		for _, off := range []int{28, 30} {
			chars = append(chars, binary.LittleEndian.Uint16(buf[off:]))
		}
		return rawDirEntry{IsLong: true, Ordinal: ord, LongChars: chars}, status
	}

	base := strings.TrimRight(string(buf[0:8]), " ")
	ext := strings.TrimRight(string(buf[8:11]), " ")
	name := base
	if ext != "" {
		name = base + "." + ext
	}

	return rawDirEntry{
		ShortName:   name,
		Attr:        attr,
		ClusterHigh: binary.LittleEndian.Uint16(buf[20:]),
		ClusterLow:  binary.LittleEndian.Uint16(buf[26:]),
		FileSize:    binary.LittleEndian.Uint32(buf[28:]),
	}, status
}

func (e *rawDirEntry) isDir() bool    { return e.Attr&attrDirectory != 0 }
func (e *rawDirEntry) isVolume() bool { return e.Attr&attrVolumeID != 0 }
func (e *rawDirEntry) cluster() uint32 {
	return uint32(e.ClusterHigh)<<16 | uint32(e.ClusterLow)
}

// longNameAccumulator collects long-name fragments keyed by ordinal
// (rather than concatenating in place as encountered) so the join step
// can sort by ordinal once, independent of physical entry order. This
// fixes the source's latent ordering bug per spec.md's design notes.
type longNameAccumulator struct {
	fragments map[int][]uint16
}

func newLongNameAccumulator() *longNameAccumulator {
	return &longNameAccumulator{fragments: make(map[int][]uint16)}
}

func (a *longNameAccumulator) add(ordinal int, chars []uint16) {
	a.fragments[ordinal] = chars
}

func (a *longNameAccumulator) empty() bool { return len(a.fragments) == 0 }

// join renders the accumulated fragments in ordinal order (1, 2, 3, ...)
// and decodes UTF-16 up to the first NUL/0xFFFF padding code unit.
func (a *longNameAccumulator) join() string {
	ordinals := make([]int, 0, len(a.fragments))
	for o := range a.fragments {
		ordinals = append(ordinals, o)
	}
	sort.Ints(ordinals)

	var units []uint16
	for _, o := range ordinals {
		for _, c := range a.fragments[o] {
			if c == 0x0000 || c == 0xFFFF {
				goto decode
			}
			units = append(units, c)
		}
	}
decode:
	return replaceInvalid(string(utf16.Decode(units)))
}

// replaceInvalid swaps the decoder's U+FFFD replacement character for
// '?', matching the output contract for non-decodable long-name bytes.
func replaceInvalid(s string) string {
	return strings.ReplaceAll(s, "�", "?")
}

func (a *longNameAccumulator) reset() {
	a.fragments = make(map[int][]uint16)
}

func readDirBlock(data []byte) [][]byte {
	n := len(data) / dirEntrySize
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = data[i*dirEntrySize : (i+1)*dirEntrySize]
	}
	return out
}
