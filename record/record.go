// Package record defines the decoded fsevents record and its filtering.
package record

import (
	"time"

	"github.com/fsetools/fseparse/flags"
)

// Record is one decoded filesystem-change event. Records are immutable once
// the decoder has produced them; sinks share the same instance by pointer.
type Record struct {
	// Path is the lossy-decoded UTF-8 path without its trailing NUL.
	Path string
	// EventID is the monotonically-issued sequence id (big-endian on disk).
	EventID uint64
	// FlagBits is the raw event bitmask (big-endian on disk).
	FlagBits uint32
	// Flags points at the cache's canonical rendering for FlagBits; it is
	// shared between every record carrying the same bitmask.
	Flags *flags.Strings
	// NodeID is present for format versions >= 2 (little-endian on disk).
	NodeID *uint64
	// ExtraID is the uninterpreted trailing word present only in version 3.
	ExtraID *uint32
	// Source names the capture file this record was decoded from.
	Source string
	// FileTimestamp is the capture file's modification time, used by the
	// unique aggregator for earliest/latest bookkeeping. Zero when unknown.
	FileTimestamp time.Time
}
