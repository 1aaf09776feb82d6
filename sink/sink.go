// Package sink contains the consumers of the broadcast hub: combined
// CSV/JSON/YAML/msgpack exports, SQLite and NATS destinations, per-file
// dumps, and the unique-path aggregator. Each sink runs on its own
// goroutine, pulling from its own hub consumer at its own pace. Write
// failures are logged and the record skipped for that sink only; they never
// propagate back to the decoder.
package sink

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fsetools/fseparse/hub"
	"github.com/fsetools/fseparse/record"
	"github.com/fsetools/fseparse/telemetry"
)

// DefaultPollInterval is how often transient sinks re-check their done flag
// while waiting for records.
const DefaultPollInterval = 100 * time.Millisecond

// Writer serializes one record to a destination.
type Writer interface {
	Write(rec *record.Record) error
	Close() error
}

// Row is the serialized shape of a record shared by the JSON, YAML, msgpack
// and NATS sinks.
type Row struct {
	Path     string  `json:"path" yaml:"path" msgpack:"path"`
	EventID  uint64  `json:"event_id" yaml:"event_id" msgpack:"event_id"`
	Flags    string  `json:"flags" yaml:"flags" msgpack:"flags"`
	AltFlags string  `json:"alt_flags" yaml:"alt_flags" msgpack:"alt_flags"`
	NodeID   *uint64 `json:"node_id" yaml:"node_id,omitempty" msgpack:"node_id,omitempty"`
	ExtraID  *uint32 `json:"extra_id,omitempty" yaml:"extra_id,omitempty" msgpack:"extra_id,omitempty"`
	Source   string  `json:"source,omitempty" yaml:"source,omitempty" msgpack:"source,omitempty"`
}

// RowFor builds the serialized shape for one record.
func RowFor(rec *record.Record) Row {
	return Row{
		Path:     rec.Path,
		EventID:  rec.EventID,
		Flags:    rec.Flags.Norm,
		AltFlags: rec.Flags.Alt,
		NodeID:   rec.NodeID,
		ExtraID:  rec.ExtraID,
		Source:   rec.Source,
	}
}

func writeOne(name string, w Writer, rec *record.Record) {
	if err := w.Write(rec); err != nil {
		telemetry.SinkWriteErrors.With(name).Inc()
		log.Error().Err(err).Str("sink", name).Str("path", rec.Path).Msg("Skipping record write")
	}
}

// Run drains c into w until the hub closes the consumer, then closes w.
// Used by the long-lived combined sinks.
func Run(name string, c *hub.Consumer, w Writer) {
	for {
		rec, ok := c.Recv()
		if !ok {
			break
		}
		writeOne(name, w, rec)
	}
	if err := w.Close(); err != nil {
		log.Error().Err(err).Str("sink", name).Msg("Failed to close sink")
	}
	log.Debug().Str("sink", name).Msg("Sink finished")
}

// Spawn starts Run on its own goroutine tracked by wg.
func Spawn(wg *sync.WaitGroup, name string, c *hub.Consumer, w Writer) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		Run(name, c, w)
	}()
}

// RunTransient drains c into w for a single capture file's lifetime. Records
// not matched by accept (records from sibling files decoded in parallel) are
// ignored. Registered consumers get no per-file end signal, so the loop
// polls done between bounded waits and exits once done is set and no record
// arrived within the poll interval.
func RunTransient(name string, c *hub.Consumer, w Writer, done *atomic.Bool, accept func(*record.Record) bool) {
	for {
		rec, open, timedOut := c.RecvTimeout(DefaultPollInterval)
		if !open {
			break
		}
		if timedOut {
			if done.Load() {
				break
			}
			continue
		}
		if accept != nil && !accept(rec) {
			continue
		}
		writeOne(name, w, rec)
	}
	if err := w.Close(); err != nil {
		log.Error().Err(err).Str("sink", name).Msg("Failed to close sink")
	}
	log.Debug().Str("sink", name).Msg("Transient sink finished")
}

// SpawnTransient starts RunTransient on its own goroutine tracked by wg.
func SpawnTransient(wg *sync.WaitGroup, name string, c *hub.Consumer, w Writer, done *atomic.Bool, accept func(*record.Record) bool) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		RunTransient(name, c, w, done, accept)
	}()
}
