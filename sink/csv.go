package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/fsetools/fseparse/record"
)

var csvHeader = []string{"path", "event_id", "flags", "alt_flags", "node_id", "extra_id", "source"}

// CSVWriter streams records to a CSV file, header first.
type CSVWriter struct {
	f *os.File
	w *csv.Writer
}

func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing header to %s: %w", path, err)
	}

	return &CSVWriter{f: f, w: w}, nil
}

func (c *CSVWriter) Write(rec *record.Record) error {
	nodeID := ""
	if rec.NodeID != nil {
		nodeID = strconv.FormatUint(*rec.NodeID, 10)
	}
	extraID := ""
	if rec.ExtraID != nil {
		extraID = strconv.FormatUint(uint64(*rec.ExtraID), 10)
	}

	return c.w.Write([]string{
		rec.Path,
		strconv.FormatUint(rec.EventID, 10),
		rec.Flags.Norm,
		rec.Flags.Alt,
		nodeID,
		extraID,
		rec.Source,
	})
}

func (c *CSVWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}
