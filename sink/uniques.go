package sink

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fsetools/fseparse/flags"
	"github.com/fsetools/fseparse/record"
)

// UniqueAggregate accumulates everything seen for one path across every
// decoded file: the hit count, the union of all flag bits, and the span of
// source file timestamps the path appeared in.
type UniqueAggregate struct {
	Count    uint64
	FlagBits uint32
	Earliest time.Time
	Latest   time.Time
}

// Uniques folds the record stream down to one aggregate per distinct path.
// It implements Writer so it can drain a hub consumer like any other sink;
// Write never fails.
type Uniques struct {
	byPath map[string]*UniqueAggregate
}

func NewUniques() *Uniques {
	return &Uniques{byPath: make(map[string]*UniqueAggregate)}
}

func (u *Uniques) Write(rec *record.Record) error {
	agg, ok := u.byPath[rec.Path]
	if !ok {
		agg = &UniqueAggregate{Earliest: rec.FileTimestamp, Latest: rec.FileTimestamp}
		u.byPath[rec.Path] = agg
	}

	agg.Count++
	agg.FlagBits |= rec.FlagBits
	if !rec.FileTimestamp.IsZero() {
		if agg.Earliest.IsZero() || rec.FileTimestamp.Before(agg.Earliest) {
			agg.Earliest = rec.FileTimestamp
		}
		if rec.FileTimestamp.After(agg.Latest) {
			agg.Latest = rec.FileTimestamp
		}
	}
	return nil
}

func (u *Uniques) Close() error { return nil }

// Len reports how many distinct paths were observed.
func (u *Uniques) Len() int { return len(u.byPath) }

// Paths returns the observed paths sorted case-insensitively, ties broken
// by the raw path for a stable order.
func (u *Uniques) Paths() []string {
	paths := make([]string, 0, len(u.byPath))
	for p := range u.byPath {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		a, b := strings.ToLower(paths[i]), strings.ToLower(paths[j])
		if a != b {
			return a < b
		}
		return paths[i] < paths[j]
	})
	return paths
}

// Get returns the aggregate for one path, or nil.
func (u *Uniques) Get(path string) *UniqueAggregate {
	return u.byPath[path]
}

// EmitCSV writes the sorted aggregates to a CSV file.
func (u *Uniques) EmitCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"path", "count", "flags", "alt_flags", "earliest", "latest"}); err != nil {
		return err
	}
	for _, p := range u.Paths() {
		agg := u.byPath[p]
		fl := flags.Render(agg.FlagBits)
		row := []string{
			p,
			strconv.FormatUint(agg.Count, 10),
			fl.Norm,
			fl.Alt,
			stampString(agg.Earliest),
			stampString(agg.Latest),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type uniqueRow struct {
	Path     string `json:"path"`
	Count    uint64 `json:"count"`
	Flags    string `json:"flags"`
	AltFlags string `json:"alt_flags"`
	Earliest string `json:"earliest,omitempty"`
	Latest   string `json:"latest,omitempty"`
}

// EmitJSON writes the sorted aggregates as JSON lines.
func (u *Uniques) EmitJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, p := range u.Paths() {
		agg := u.byPath[p]
		fl := flags.Render(agg.FlagBits)
		row := uniqueRow{
			Path:     p,
			Count:    agg.Count,
			Flags:    fl.Norm,
			AltFlags: fl.Alt,
			Earliest: stampString(agg.Earliest),
			Latest:   stampString(agg.Latest),
		}
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

func stampString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
