// Package decode implements the version-aware streaming decoder for fsevents
// capture files: page framing, per-version record layouts, and the per-file
// decode loop that feeds the broadcast hub.
package decode

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fsetools/fseparse/flags"
	"github.com/fsetools/fseparse/record"
)

// ErrUnsupportedVersion means a page started with an unrecognized format tag.
// Page boundaries cannot be located without knowing the record layout, so the
// whole file decode aborts.
var ErrUnsupportedVersion = errors.New("unsupported page version")

// Version identifies one of the three known on-disk record layouts.
type Version uint8

const (
	V1 Version = iota + 1 // "1SLD": path + event id + flags
	V2                    // "2SLD": V1 + little-endian node id
	V3                    // "3SLD": V2 + 4 uninterpreted native-endian bytes
)

var (
	tagV1 = [4]byte{'1', 'S', 'L', 'D'}
	tagV2 = [4]byte{'2', 'S', 'L', 'D'}
	tagV3 = [4]byte{'3', 'S', 'L', 'D'}
)

func (v Version) hasNodeID() bool  { return v >= V2 }
func (v Version) hasExtraID() bool { return v == V3 }

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	case V3:
		return "v3"
	default:
		return fmt.Sprintf("version(%d)", uint8(v))
	}
}

// readVersion reads the 4-byte format tag at the start of a page. It returns
// io.EOF untouched when the stream ends exactly at a page boundary, and
// ErrUnsupportedVersion for a tag that is none of the known three.
func readVersion(r *bufio.Reader) (Version, error) {
	var tag [4]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		if errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("reading page tag: %w", err)
	}

	switch tag {
	case tagV1:
		return V1, nil
	case tagV2:
		return V2, nil
	case tagV3:
		return V3, nil
	default:
		return 0, fmt.Errorf("%w: tag %q", ErrUnsupportedVersion, tag[:])
	}
}

// decodeRecord decodes one record of the given version. It returns
// (0, nil, nil) when reading the NUL-terminated path hits end of input
// first, which is the normal end-of-records signal. Any other short read is
// a fatal format error. The returned count is the record's exact on-disk
// byte size.
func decodeRecord(r *bufio.Reader, v Version) (int, *record.Record, error) {
	raw, err := r.ReadBytes(0)
	if err != nil {
		if errors.Is(err, io.EOF) {
			// No terminator before the stream ended: end of records.
			return 0, nil, nil
		}
		return 0, nil, fmt.Errorf("reading path: %w", err)
	}

	path := strings.ToValidUTF8(string(raw[:len(raw)-1]), "�")
	consumed := len(raw)

	var fixed [12]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return 0, nil, fmt.Errorf("reading event id and flags for %q: %w", path, err)
	}
	eventID := binary.BigEndian.Uint64(fixed[:8])
	flagBits := binary.BigEndian.Uint32(fixed[8:])
	consumed += 12

	rec := &record.Record{
		Path:     path,
		EventID:  eventID,
		FlagBits: flagBits,
		Flags:    flags.Render(flagBits),
	}

	if v.hasNodeID() {
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, nil, fmt.Errorf("reading node id for %q: %w", path, err)
		}
		nodeID := binary.LittleEndian.Uint64(buf[:])
		rec.NodeID = &nodeID
		consumed += 8
	}

	if v.hasExtraID() {
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, nil, fmt.Errorf("reading extra id for %q: %w", path, err)
		}
		// Meaning unknown upstream; kept for debug visibility only.
		extraID := binary.NativeEndian.Uint32(buf[:])
		rec.ExtraID = &extraID
		consumed += 4
	}

	return consumed, rec, nil
}
