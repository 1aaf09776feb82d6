package sink

import (
	"bufio"
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/fsetools/fseparse/record"
)

// MsgpackWriter streams records as concatenated msgpack values.
type MsgpackWriter struct {
	f   *os.File
	buf *bufio.Writer
	enc *msgpack.Encoder
}

func NewMsgpackWriter(path string) (*MsgpackWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	buf := bufio.NewWriter(f)
	return &MsgpackWriter{f: f, buf: buf, enc: msgpack.NewEncoder(buf)}, nil
}

func (m *MsgpackWriter) Write(rec *record.Record) error {
	return m.enc.Encode(RowFor(rec))
}

func (m *MsgpackWriter) Close() error {
	if err := m.buf.Flush(); err != nil {
		m.f.Close()
		return err
	}
	return m.f.Close()
}
