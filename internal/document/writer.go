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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// container is one open document or array: a scratch buffer that
// accumulates encoded fields until EndDoc/EndArray closes it and folds
// it, length-prefixed, into its parent.
type container struct {
	isArray bool
	nextIdx int // array element keys are their decimal index
	buf     bytes.Buffer
}

// Writer builds a document incrementally with BeginDoc/BeginArray/Emit*/
// EndArray/EndDoc, then Flush writes the finished tree to a sink. Nothing
// touches the sink before Flush: containers are built up in memory so
// their lengths can be back-patched without seeking the output.
//
// A Writer is single-use and not safe for concurrent calls.
type Writer struct {
	stack   []*container
	pending []nestedKey // (key, tag) for each open nested container, parallel to stack[1:]
}

// nestedKey is the field header a nested container will be written under
// in its parent once it closes: the tag differs for documents vs. arrays
// and the key is only needed at close time, so both are stashed here
// rather than written eagerly at Begin time.
type nestedKey struct {
	key string
	tag Tag
}

// NewWriter returns a Writer with no open document.
func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) top() *container {
	if len(w.stack) == 0 {
		return nil
	}
	return w.stack[len(w.stack)-1]
}

// BeginDoc opens the root document. Call it exactly once before any
// Emit/BeginArray/BeginDoc call.
func (w *Writer) BeginDoc() {
	w.stack = append(w.stack, &container{})
}

// BeginArray opens an array nested under key in the current container.
func (w *Writer) BeginArray(key string) {
	c := &container{isArray: true}
	w.pushNested(key, TagArray, c)
}

// BeginNestedDoc opens a sub-document nested under key in the current
// container. (The top-level document uses BeginDoc with no key.)
func (w *Writer) BeginNestedDoc(key string) {
	c := &container{}
	w.pushNested(key, TagDocument, c)
}

func (w *Writer) pushNested(key string, tag Tag, c *container) {
	w.pending = append(w.pending, nestedKey{key: key, tag: tag})
	w.stack = append(w.stack, c)
}

// EndArray closes the innermost array and folds it into its parent.
func (w *Writer) EndArray() error {
	return w.endNested(true)
}

// EndDoc closes the innermost document. Calling it on the root document
// does NOT flush to a sink; call Flush for that.
func (w *Writer) EndDoc() error {
	return w.endNested(false)
}

func (w *Writer) endNested(wantArray bool) error {
	if len(w.stack) == 0 {
		return fmt.Errorf("document: end called with nothing open")
	}
	child := w.stack[len(w.stack)-1]
	if child.isArray != wantArray {
		return fmt.Errorf("document: container kind mismatch on close")
	}
	if len(w.stack) == 1 {
		// Closing the root: nothing to fold into, root stays open for Flush.
		if len(w.pending) != 0 {
			return fmt.Errorf("document: root has no pending key entry")
		}
		return nil
	}
	nk := w.pending[len(w.pending)-1]
	w.pending = w.pending[:len(w.pending)-1]
	w.stack = w.stack[:len(w.stack)-1]
	parent := w.top()

	body := encodeContainer(child)
	parent.buf.WriteByte(byte(nk.tag))
	writeCString(&parent.buf, nk.key)
	parent.buf.Write(body)
	return nil
}

// encodeContainer renders a closed container's length-prefixed,
// NUL-terminated body: [4-byte total length][fields...][0x00].
func encodeContainer(c *container) []byte {
	total := lengthPrefixSize + c.buf.Len() + 1
	out := make([]byte, 4, total)
	binary.LittleEndian.PutUint32(out, uint32(total))
	out = append(out, c.buf.Bytes()...)
	out = append(out, 0x00)
	return out
}

func writeCString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0x00)
}

// key returns the next field key for the current container: the literal
// key for a document, or the decimal element index for an array (the
// array element's name is conventionally its index, matching how BSON
// arrays key their elements).
func (w *Writer) key(explicit string) string {
	c := w.top()
	if !c.isArray {
		return explicit
	}
	idx := c.nextIdx
	c.nextIdx++
	return itoa(idx)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func (w *Writer) emitHeader(tag Tag, explicitKey string) {
	c := w.top()
	c.buf.WriteByte(byte(tag))
	writeCString(&c.buf, w.key(explicitKey))
}

// EmitBool appends a boolean field.
func (w *Writer) EmitBool(key string, v bool) {
	w.emitHeader(TagBool, key)
	b := byte(0)
	if v {
		b = 1
	}
	w.top().buf.WriteByte(b)
}

// EmitInt32 appends a little-endian 32-bit signed integer field.
func (w *Writer) EmitInt32(key string, v int32) {
	w.emitHeader(TagInt32, key)
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	w.top().buf.Write(tmp[:])
}

// EmitInt64 appends a little-endian 64-bit signed integer field.
func (w *Writer) EmitInt64(key string, v int64) {
	w.emitHeader(TagInt64, key)
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	w.top().buf.Write(tmp[:])
}

// EmitUint64 appends v reinterpreted as a signed 64-bit field; the
// document format has no unsigned tag, matching how every other numeric
// field (sector numbers, sizes) is carried.
func (w *Writer) EmitUint64(key string, v uint64) {
	w.EmitInt64(key, int64(v))
}

// EmitString appends a UTF-8 string field: i32 length prefix (including
// the trailing NUL) followed by the bytes and a NUL terminator.
func (w *Writer) EmitString(key string, v string) {
	w.emitHeader(TagString, key)
	c := w.top()
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(len(v)+1))
	c.buf.Write(tmp[:])
	c.buf.WriteString(v)
	c.buf.WriteByte(0x00)
}

// EmitBinary appends an opaque byte string field: i32 length prefix, a
// subtype byte, then the raw bytes (e.g. a sector list encoded as
// 8-byte little-endian sector numbers).
func (w *Writer) EmitBinary(key string, subtype byte, v []byte) {
	w.emitHeader(TagBinary, key)
	c := w.top()
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(len(v)))
	c.buf.Write(tmp[:])
	c.buf.WriteByte(subtype)
	c.buf.Write(v)
}

// EmitSectorList is a convenience over EmitBinary for the recurring
// file-record field: a list of absolute 512-byte sector numbers.
func (w *Writer) EmitSectorList(key string, sectors []uint64) {
	buf := make([]byte, 8*len(sectors))
	for i, s := range sectors {
		binary.LittleEndian.PutUint64(buf[i*8:], s)
	}
	w.EmitBinary(key, 0x00, buf)
}

// Flush finalizes the root document and writes it to sink.
func (w *Writer) Flush(sink io.Writer) error {
	if len(w.stack) != 1 {
		return fmt.Errorf("document: Flush called with %d containers still open", len(w.stack))
	}
	body := encodeContainer(w.stack[0])
	_, err := sink.Write(body)
	return err
}
