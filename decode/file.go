package decode

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/fsetools/fseparse/hub"
	"github.com/fsetools/fseparse/record"
	"github.com/fsetools/fseparse/telemetry"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// DecodeFile decodes one capture file start to finish, pushing accepted
// records to h. Compressed inputs (gzip, including multi-member streams, and
// zstd) are unwrapped transparently. Errors are fatal for this file only;
// the caller decides whether sibling files continue.
func DecodeFile(path string, h *hub.Hub, f *record.Filter) error {
	log.Info().Str("file", path).Msg("Parsing capture file")

	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer fh.Close()

	var stamp time.Time
	if info, err := fh.Stat(); err == nil {
		stamp = info.ModTime()
	}

	src, err := transparentReader(bufio.NewReaderSize(fh, readBufferSize))
	if err != nil {
		return fmt.Errorf("preparing %s: %w", path, err)
	}

	if err := DecodeStream(src, path, stamp, h, f); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	telemetry.FilesParsed.Inc()
	return nil
}

// transparentReader sniffs the stream's magic bytes and wraps gzip or zstd
// decompression around it when present; anything else is read raw.
func transparentReader(br *bufio.Reader) (io.Reader, error) {
	head, err := br.Peek(4)
	if err != nil {
		// Shorter than any magic prefix; let the framer report EOF.
		return br, nil
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return gz, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return br, nil
	}
}
