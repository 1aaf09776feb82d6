package sink

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fsetools/fseparse/record"
)

// JSONWriter streams records as JSON lines, one object per record.
type JSONWriter struct {
	f   *os.File
	enc *json.Encoder
}

func NewJSONWriter(path string) (*JSONWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &JSONWriter{f: f, enc: json.NewEncoder(f)}, nil
}

func (j *JSONWriter) Write(rec *record.Record) error {
	return j.enc.Encode(RowFor(rec))
}

func (j *JSONWriter) Close() error {
	return j.f.Close()
}
