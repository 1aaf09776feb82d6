package sink

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fsetools/fseparse/record"
)

// YAMLWriter streams records as a sequence of YAML documents.
type YAMLWriter struct {
	f   *os.File
	enc *yaml.Encoder
}

func NewYAMLWriter(path string) (*YAMLWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &YAMLWriter{f: f, enc: yaml.NewEncoder(f)}, nil
}

func (y *YAMLWriter) Write(rec *record.Record) error {
	return y.enc.Encode(RowFor(rec))
}

func (y *YAMLWriter) Close() error {
	if err := y.enc.Close(); err != nil {
		y.f.Close()
		return err
	}
	return y.f.Close()
}
