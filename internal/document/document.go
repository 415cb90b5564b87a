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

// Package document implements the self-describing binary record format the
// decoder emits: a length-prefixed tree whose fields each carry a 1-byte
// type tag, a NUL-terminated key, and a typed little-endian payload. It is
// deliberately BSON-shaped (the format this module's predecessor produced)
// but has no external schema or library dependency: the whole grammar is
// seven type tags and a back-patched length.
package document

// Tag identifies the wire type of one field's payload.
type Tag byte

const (
	TagBool     Tag = 0x01
	TagInt32    Tag = 0x02
	TagInt64    Tag = 0x03
	TagString   Tag = 0x04
	TagBinary   Tag = 0x05
	TagArray    Tag = 0x06
	TagDocument Tag = 0x07
)

// lengthPrefixSize is the width of the back-patched total-length field
// that opens every document or array, counted as part of that length.
const lengthPrefixSize = 4
