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
	"encoding/binary"
	"fmt"
)

// dirEntry is one decoded directory entry: inode, total record length,
// name length, file type byte, and the name itself.
type dirEntry struct {
	Inode    uint32
	RecLen   uint16
	NameLen  uint8
	FileType uint8
	Name     string
}

// parseDirBlock decodes every entry in a single directory data block.
// Per spec, the sum of rec_len over all entries must equal the block
// size; a violation is reported but everything decoded before the bad
// entry is still returned, letting the walk keep whatever was valid.
func parseDirBlock(buf []byte) ([]dirEntry, error) {
	var entries []dirEntry
	pos := 0
	for pos < len(buf) {
		if pos+8 > len(buf) {
			return entries, fmt.Errorf("dirent header runs past block end at offset %d", pos)
		}
		inode := binary.LittleEndian.Uint32(buf[pos:])
		recLen := binary.LittleEndian.Uint16(buf[pos+4:])
		nameLen := buf[pos+6]
		fileType := buf[pos+7]

		if recLen < 8+uint16(nameLen) || recLen%4 != 0 || pos+int(recLen) > len(buf) {
			return entries, fmt.Errorf("invalid rec_len %d at offset %d", recLen, pos)
		}

		if inode != 0 {
			name := string(buf[pos+8 : pos+8+int(nameLen)])
			entries = append(entries, dirEntry{
				Inode:    inode,
				RecLen:   recLen,
				NameLen:  nameLen,
				FileType: fileType,
				Name:     name,
			})
		}
		pos += int(recLen)
	}
	if pos != len(buf) {
		return entries, fmt.Errorf("entries cover %d of %d block bytes", pos, len(buf))
	}
	return entries, nil
}
