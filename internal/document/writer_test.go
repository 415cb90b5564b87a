package document_test

import (
	"bytes"
	"testing"

	"github.com/scafiti/diskdigler/internal/document"
	"github.com/stretchr/testify/require"
)

func TestWriter_RoundTrip(t *testing.T) {
	w := document.NewWriter()
	w.BeginDoc()
	w.EmitString("fs", "ext2")
	w.EmitInt64("size", 13)
	w.EmitBool("dir", false)
	w.BeginArray("sectors")
	w.EmitUint64("", 2056)
	w.EmitUint64("", 2057)
	require.NoError(t, w.EndArray())
	w.BeginNestedDoc("meta")
	w.EmitInt32("version", 1)
	require.NoError(t, w.EndDoc())

	var buf bytes.Buffer
	require.NoError(t, w.Flush(&buf))

	fields, n, err := document.Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, buf.Len(), n)
	require.Len(t, fields, 5)

	require.Equal(t, "fs", fields[0].Key)
	require.Equal(t, "ext2", fields[0].Value)

	require.Equal(t, "size", fields[1].Key)
	require.Equal(t, int64(13), fields[1].Value)

	require.Equal(t, "dir", fields[2].Key)
	require.Equal(t, false, fields[2].Value)

	sectors, ok := fields[3].Value.([]*document.Field)
	require.True(t, ok)
	require.Len(t, sectors, 2)
	require.Equal(t, int64(2056), sectors[0].Value)
	require.Equal(t, int64(2057), sectors[1].Value)

	meta, ok := fields[4].Value.([]*document.Field)
	require.True(t, ok)
	require.Len(t, meta, 1)
	require.Equal(t, "version", meta[0].Key)
	require.Equal(t, int32(1), meta[0].Value)
}

func TestWriter_EmitBinary(t *testing.T) {
	w := document.NewWriter()
	w.BeginDoc()
	w.EmitSectorList("blocks", []uint64{10, 20, 30})
	require.NoError(t, nil)

	var buf bytes.Buffer
	require.NoError(t, w.Flush(&buf))

	fields, _, err := document.Decode(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fields, 1)

	bin, ok := fields[0].Value.(*document.Binary)
	require.True(t, ok)
	require.Len(t, bin.Data, 24)
}

func TestWriter_EmptyDocument(t *testing.T) {
	w := document.NewWriter()
	w.BeginDoc()

	var buf bytes.Buffer
	require.NoError(t, w.Flush(&buf))
	require.Equal(t, 5, buf.Len()) // 4-byte length + terminator

	fields, n, err := document.Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Empty(t, fields)
}
