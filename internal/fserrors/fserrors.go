// Package fserrors defines the error kinds the decoder and its drivers
// report, and the propagation rules a caller can rely on via errors.Is.
package fserrors

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Wrap one of these with fmt.Errorf("...: %w", KindX) so
// callers can classify a failure with errors.Is without string matching.
var (
	// Io covers reader/writer failures unrelated to the data itself.
	Io = errors.New("io error")
	// Truncated means a read returned fewer bytes than the record requires.
	Truncated = errors.New("truncated read")
	// BadMagic means a probe rejected the candidate file system; local to
	// that driver, the pipeline just tries the next one.
	BadMagic = errors.New("bad magic")
	// Invariant means a decoded field violates a documented invariant
	// (e.g. a dirent rec_len that doesn't fit in its block).
	Invariant = errors.New("invariant violation")
	// Unsupported means the format was recognized but isn't walked (NTFS).
	Unsupported = errors.New("unsupported operation")
	// Cancelled means the cooperative cancellation predicate tripped.
	Cancelled = errors.New("cancelled")
)

// Diag is a diagnostic emitted for a skipped entry, block, or partition.
// It never aborts a walk; the pipeline logs it and keeps going.
type Diag struct {
	Partition int
	Component string // "mbr", "ext2", "fat32", "ntfs"
	Offset    uint64 // offending byte offset, printed as hex by Error
	Err       error
}

func (d *Diag) Error() string {
	return fmt.Sprintf("partition %d [%s] at 0x%x: %v", d.Partition, d.Component, d.Offset, d.Err)
}

func (d *Diag) Unwrap() error { return d.Err }

func NewDiag(partition int, component string, offset uint64, err error) *Diag {
	return &Diag{Partition: partition, Component: component, Offset: offset, Err: err}
}
