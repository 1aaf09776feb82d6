// Package job turns command line inputs into decode work: it discovers
// capture files, runs them sequentially or in parallel, and manages the
// per-file dump sinks around each file's lifetime.
package job

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/fsetools/fseparse/decode"
	"github.com/fsetools/fseparse/hub"
	"github.com/fsetools/fseparse/record"
	"github.com/fsetools/fseparse/sink"
	"github.com/fsetools/fseparse/telemetry"
)

// Options selects how inputs are processed.
type Options struct {
	Parallel    bool
	PerFileCSV  bool
	PerFileJSON bool
}

// DiscoverInputs expands command line arguments into capture file paths.
// A file argument is taken as-is. A directory argument contributes its
// regular entries with hexadecimal names, sorted, since that is how the
// fseventsd daemon names its log files. An unreadable argument is an error.
func DiscoverInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}

		if !info.IsDir() {
			inputs = append(inputs, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", arg, err)
		}

		var found []string
		for _, e := range entries {
			if e.Type().IsRegular() && isHexName(e.Name()) {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		if len(found) == 0 {
			log.Warn().Str("dir", arg).Msg("No capture files found in directory")
		}
		inputs = append(inputs, found...)
	}
	return inputs, nil
}

func isHexName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Run decodes every input, pushing records through h. Per-file failures are
// logged and counted; siblings always continue. Returns the failure count.
func Run(h *hub.Hub, f *record.Filter, inputs []string, opts Options) int {
	if opts.Parallel {
		var failures atomic.Int64
		var wg sync.WaitGroup
		for _, path := range inputs {
			wg.Add(1)
			go func(path string) {
				defer wg.Done()
				if err := processFile(h, f, path, opts); err != nil {
					telemetry.FileErrors.Inc()
					log.Error().Err(err).Str("file", path).Msg("Failed to process capture file")
					failures.Add(1)
				}
			}(path)
		}
		wg.Wait()
		return int(failures.Load())
	}

	failures := 0
	for _, path := range inputs {
		if err := processFile(h, f, path, opts); err != nil {
			telemetry.FileErrors.Inc()
			log.Error().Err(err).Str("file", path).Msg("Failed to process capture file")
			failures++
		}
	}
	return failures
}

// processFile decodes one capture file with its per-file dump sinks, if any,
// registered for the file's lifetime. In parallel mode sibling files share
// the hub, so per-file sinks match on the record's source path.
func processFile(h *hub.Hub, f *record.Filter, path string, opts Options) error {
	var wg sync.WaitGroup
	var done atomic.Bool
	var consumers []*hub.Consumer

	teardown := func() {
		done.Store(true)
		wg.Wait()
		for _, c := range consumers {
			h.Cancel(c)
		}
	}

	accept := func(r *record.Record) bool {
		return r.Source == path
	}

	if opts.PerFileCSV {
		w, err := sink.NewCSVWriter(path + ".csv")
		if err != nil {
			teardown()
			return err
		}
		c := h.Register()
		consumers = append(consumers, c)
		sink.SpawnTransient(&wg, "per-file-csv", c, w, &done, accept)
	}
	if opts.PerFileJSON {
		w, err := sink.NewJSONWriter(path + ".json")
		if err != nil {
			teardown()
			return err
		}
		c := h.Register()
		consumers = append(consumers, c)
		sink.SpawnTransient(&wg, "per-file-json", c, w, &done, accept)
	}

	err := decode.DecodeFile(path, h, f)
	teardown()
	return err
}
