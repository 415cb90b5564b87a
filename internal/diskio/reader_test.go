package diskio_test

import (
	"bytes"
	"testing"

	"github.com/scafiti/diskdigler/internal/diskio"
	"github.com/scafiti/diskdigler/internal/fserrors"
	"github.com/stretchr/testify/require"
)

func TestByteReader_ReadAt(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 1024)
	data[512] = 0xEF
	r := diskio.New(bytes.NewReader(data), int64(len(data)))

	buf, err := r.ReadExact(512, 4)
	require.NoError(t, err)
	require.Equal(t, byte(0xEF), buf[0])
	require.Equal(t, int64(1024), r.Size())
}

func TestByteReader_ShortReadIsTruncated(t *testing.T) {
	data := make([]byte, 10)
	r := diskio.New(bytes.NewReader(data), int64(len(data)))

	_, err := r.ReadExact(5, 20)
	require.Error(t, err)
	require.ErrorIs(t, err, fserrors.Truncated)
}

func TestByteReader_InBounds(t *testing.T) {
	r := diskio.New(bytes.NewReader(make([]byte, 100)), 100)
	require.True(t, r.InBounds(0, 100))
	require.True(t, r.InBounds(50, 50))
	require.False(t, r.InBounds(50, 51))
	require.False(t, r.InBounds(-1, 10))
}
