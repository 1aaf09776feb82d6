package decode

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fsetools/fseparse/hub"
	"github.com/fsetools/fseparse/record"
	"github.com/fsetools/fseparse/telemetry"
)

// ErrPageLengthMismatch means record decoding consumed more bytes than the
// page header declared. The file is corrupt from that point on; records
// already broadcast remain valid.
var ErrPageLengthMismatch = errors.New("page length mismatch")

// pageHeaderSize covers the tag, the reserved word, and the declared length.
// The declared length is measured from the start of the tag, inclusive, so
// the consumed counter is seeded with this value.
const pageHeaderSize = 12

const readBufferSize = 64 * 1024

// DecodeStream decodes consecutive pages from r until end of stream, pushing
// every filter-accepted record to h. source and stamp annotate the records
// with their origin capture file and its modification time. End of stream at
// a page boundary is success; any framing violation aborts with an error.
func DecodeStream(r io.Reader, source string, stamp time.Time, h *hub.Hub, f *record.Filter) error {
	br := bufio.NewReaderSize(r, readBufferSize)

	for {
		v, err := readVersion(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var header [8]byte // 4 reserved bytes + little-endian page length
		if _, err := io.ReadFull(br, header[:]); err != nil {
			return fmt.Errorf("reading page header: %w", err)
		}
		declared := int(binary.LittleEndian.Uint32(header[4:]))

		log.Debug().Stringer("version", v).Int("declared", declared).Msg("Decoding page")

		consumed := pageHeaderSize
		for {
			n, rec, err := decodeRecord(br, v)
			if err != nil {
				return err
			}
			if rec == nil {
				// End of input mid-page; the outer loop settles whether
				// this was a clean boundary.
				break
			}

			// Length accounting happens for every decoded record; the
			// filter only gates delivery.
			consumed += n
			if consumed > declared {
				return fmt.Errorf("%w: consumed %d of %d declared bytes", ErrPageLengthMismatch, consumed, declared)
			}

			rec.Source = source
			rec.FileTimestamp = stamp
			telemetry.RecordsDecoded.Inc()

			if f.Accepts(rec) {
				h.Push(rec)
				telemetry.RecordsBroadcast.Inc()
			} else {
				telemetry.RecordsFiltered.Inc()
			}

			if consumed == declared {
				break
			}
		}

		telemetry.PagesDecoded.Inc()
	}
}
