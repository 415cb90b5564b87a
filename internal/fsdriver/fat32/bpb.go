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

// Package fat32 implements the FAT32 file-system driver: BPB probe, FAT
// chain resolution, and short/long directory-entry reconstruction.
package fat32

import (
	"encoding/binary"
	"fmt"

	"github.com/scafiti/diskdigler/internal/diskio"
	"github.com/scafiti/diskdigler/internal/fserrors"
)

const (
	bpbSize        = 512
	signatureOff   = 510
	bootSignature  = 0xAA55
	eocThreshold   = 0x0FFFFFF8 // spec.md's open question resolves to the standard convention
	badCluster     = 0x0FFFFFF7
	firstDataClust = 2
)

// bpb holds the BIOS Parameter Block fields the driver needs, read at
// their fixed offsets rather than decoded as one packed struct: the
// source itself reads the BPB field-by-field with lseek, and FAT32's
// boot sector mixes FAT12/16-only fields the driver never uses.
type bpb struct {
	BytesPerSector    uint16 // offset 0x0B
	SectorsPerCluster uint8  // offset 0x0D
	ReservedSectors   uint16 // offset 0x0E
	NumFATs           uint8  // offset 0x10
	SectorsPerFAT32   uint32 // offset 0x24
	RootDirCluster    uint32 // offset 0x2C
}

func readBPB(r *diskio.ByteReader, partitionOffset uint64) (*bpb, error) {
	if partitionOffset == 0 {
		return nil, fmt.Errorf("fat32: no file system can live at the MBR itself: %w", fserrors.BadMagic)
	}

	raw, err := r.ReadExact(int64(partitionOffset), bpbSize)
	if err != nil {
		return nil, err
	}

	if binary.LittleEndian.Uint16(raw[signatureOff:]) != bootSignature {
		return nil, fmt.Errorf("fat32: missing boot signature: %w", fserrors.BadMagic)
	}

	b := &bpb{
		BytesPerSector:    binary.LittleEndian.Uint16(raw[0x0B:]),
		SectorsPerCluster: raw[0x0D],
		ReservedSectors:   binary.LittleEndian.Uint16(raw[0x0E:]),
		NumFATs:           raw[0x10],
		SectorsPerFAT32:   binary.LittleEndian.Uint32(raw[0x24:]),
		RootDirCluster:    binary.LittleEndian.Uint32(raw[0x2C:]),
	}

	if !isPow2(uint32(b.BytesPerSector)) || b.BytesPerSector < 512 || b.BytesPerSector > 4096 {
		return nil, fmt.Errorf("fat32: implausible bytes_per_sector %d: %w", b.BytesPerSector, fserrors.Invariant)
	}
	if !isPow2(uint32(b.SectorsPerCluster)) || b.SectorsPerCluster < 1 || b.SectorsPerCluster > 128 {
		return nil, fmt.Errorf("fat32: implausible sectors_per_cluster %d: %w", b.SectorsPerCluster, fserrors.Invariant)
	}
	if b.NumFATs < 1 {
		return nil, fmt.Errorf("fat32: num_fats must be >= 1: %w", fserrors.Invariant)
	}
	return b, nil
}

func isPow2(n uint32) bool { return n != 0 && n&(n-1) == 0 }

// clusterBeginSector is the first sector (relative to the partition) of
// cluster data, i.e. cluster 2.
func (b *bpb) clusterBeginSector() uint64 {
	return uint64(b.ReservedSectors) + uint64(b.NumFATs)*uint64(b.SectorsPerFAT32)
}

func (b *bpb) clusterSize() uint32 {
	return uint32(b.BytesPerSector) * uint32(b.SectorsPerCluster)
}

// clusterOffset returns the absolute byte offset of cluster k.
func (b *bpb) clusterOffset(partitionOffset uint64, k uint32) uint64 {
	sector := b.clusterBeginSector() + uint64(k-firstDataClust)*uint64(b.SectorsPerCluster)
	return partitionOffset + sector*uint64(b.BytesPerSector)
}

// fatEntryOffset returns the absolute byte offset of cluster k's FAT32
// entry in the first FAT copy.
func (b *bpb) fatEntryOffset(partitionOffset uint64, k uint32) uint64 {
	return partitionOffset + uint64(b.ReservedSectors)*uint64(b.BytesPerSector) + uint64(k)*4
}
