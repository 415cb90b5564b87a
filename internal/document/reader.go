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
package document

import (
	"encoding/binary"
	"fmt"
)

// Field is one decoded key/value pair. Value's concrete type depends on
// Tag: bool, int32, int64, string, *Binary, []*Field (array, keyed by
// decimal index but returned in encounter order), or []*Field (document).
type Field struct {
	Key   string
	Tag   Tag
	Value any
}

// Binary is the decoded form of a TagBinary payload.
type Binary struct {
	Subtype byte
	Data    []byte
}

// Decode parses one complete document from the front of data and returns
// its fields plus the number of bytes consumed.
func Decode(data []byte) ([]*Field, int, error) {
	if len(data) < lengthPrefixSize {
		return nil, 0, fmt.Errorf("document: truncated length prefix")
	}
	total := int(binary.LittleEndian.Uint32(data))
	if total < lengthPrefixSize+1 || total > len(data) {
		return nil, 0, fmt.Errorf("document: invalid total length %d", total)
	}
	fields, err := decodeFields(data[lengthPrefixSize : total-1])
	if err != nil {
		return nil, 0, err
	}
	if data[total-1] != 0x00 {
		return nil, 0, fmt.Errorf("document: missing terminator byte")
	}
	return fields, total, nil
}

func decodeFields(body []byte) ([]*Field, error) {
	var fields []*Field
	pos := 0
	for pos < len(body) {
		tag := Tag(body[pos])
		pos++
		keyEnd := pos
		for keyEnd < len(body) && body[keyEnd] != 0x00 {
			keyEnd++
		}
		if keyEnd >= len(body) {
			return nil, fmt.Errorf("document: unterminated key")
		}
		key := string(body[pos:keyEnd])
		pos = keyEnd + 1

		val, n, err := decodeValue(tag, body[pos:])
		if err != nil {
			return nil, fmt.Errorf("document: field %q: %w", key, err)
		}
		pos += n
		fields = append(fields, &Field{Key: key, Tag: tag, Value: val})
	}
	return fields, nil
}

func decodeValue(tag Tag, data []byte) (any, int, error) {
	switch tag {
	case TagBool:
		if len(data) < 1 {
			return nil, 0, fmt.Errorf("truncated bool")
		}
		return data[0] != 0, 1, nil
	case TagInt32:
		if len(data) < 4 {
			return nil, 0, fmt.Errorf("truncated int32")
		}
		return int32(binary.LittleEndian.Uint32(data)), 4, nil
	case TagInt64:
		if len(data) < 8 {
			return nil, 0, fmt.Errorf("truncated int64")
		}
		return int64(binary.LittleEndian.Uint64(data)), 8, nil
	case TagString:
		if len(data) < 4 {
			return nil, 0, fmt.Errorf("truncated string length")
		}
		strLen := int(binary.LittleEndian.Uint32(data))
		if strLen < 1 || 4+strLen > len(data) {
			return nil, 0, fmt.Errorf("invalid string length %d", strLen)
		}
		s := string(data[4 : 4+strLen-1])
		return s, 4 + strLen, nil
	case TagBinary:
		if len(data) < 5 {
			return nil, 0, fmt.Errorf("truncated binary header")
		}
		n := int(binary.LittleEndian.Uint32(data))
		if 5+n > len(data) {
			return nil, 0, fmt.Errorf("invalid binary length %d", n)
		}
		buf := make([]byte, n)
		copy(buf, data[5:5+n])
		return &Binary{Subtype: data[4], Data: buf}, 5 + n, nil
	case TagArray, TagDocument:
		fields, consumed, err := Decode(data)
		if err != nil {
			return nil, 0, err
		}
		return fields, consumed, nil
	default:
		return nil, 0, fmt.Errorf("unknown type tag 0x%02x", tag)
	}
}
