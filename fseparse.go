package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fsetools/fseparse/cfg"
	"github.com/fsetools/fseparse/hub"
	"github.com/fsetools/fseparse/job"
	"github.com/fsetools/fseparse/record"
	"github.com/fsetools/fseparse/sink"
	"github.com/fsetools/fseparse/telemetry"
)

func main() {
	flag.Parse()

	// Load configuration
	err := cfg.Load(*cfg.ConfigPathFlag)
	if err != nil {
		panic(err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Setup logging
	var writer io.Writer = zerolog.NewConsoleWriter()
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stdout
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Info().Msg("fseparse - fsevents capture file decoder")
	log.Debug().Msg("Initializing telemetry")
	telemetry.InitializeTelemetry()
	telemetry.StartServer()

	inputs, err := job.DiscoverInputs(flag.Args())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to discover inputs")
		return
	}
	if len(inputs) == 0 {
		log.Fatal().Msg("No capture files to decode; pass files or fseventsd directories as arguments")
		return
	}

	filter, err := record.NewFilter(
		cfg.Config.Filter.PathRegex,
		cfg.Config.Filter.PathGlobs,
		cfg.Config.Filter.AnyFlags,
		cfg.Config.Filter.AllFlags,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid record filter")
		return
	}

	h := hub.New(cfg.Config.Hub.Capacity)

	var wg sync.WaitGroup
	uniques := startSinks(h, &wg)

	failures := job.Run(h, filter, inputs, job.Options{
		Parallel:    cfg.Config.Parallel,
		PerFileCSV:  cfg.Config.Output.PerFileCSV,
		PerFileJSON: cfg.Config.Output.PerFileJSON,
	})

	// Closing the hub ends every long-lived sink once its buffer drains.
	h.Close()
	wg.Wait()

	if uniques != nil {
		emitUniques(uniques)
	}

	log.Info().
		Int("files", len(inputs)).
		Int("failures", failures).
		Msg("Done")

	if failures > 0 {
		os.Exit(1)
	}
}

// startSinks registers every configured long-lived sink on the hub and spawns
// its drain goroutine. Returns the unique-path aggregator when one is needed.
func startSinks(h *hub.Hub, wg *sync.WaitGroup) *sink.Uniques {
	out := cfg.Config.Output

	spawn := func(name string, w sink.Writer, err error) {
		if err != nil {
			log.Fatal().Err(err).Str("sink", name).Msg("Failed to open sink")
		}
		sink.Spawn(wg, name, h.Register(), w)
	}

	if out.CSV != "" {
		w, err := sink.NewCSVWriter(out.CSV)
		spawn("csv", w, err)
	}
	if out.JSON != "" {
		w, err := sink.NewJSONWriter(out.JSON)
		spawn("json", w, err)
	}
	if out.YAML != "" {
		w, err := sink.NewYAMLWriter(out.YAML)
		spawn("yaml", w, err)
	}
	if out.Msgpack != "" {
		w, err := sink.NewMsgpackWriter(out.Msgpack)
		spawn("msgpack", w, err)
	}
	if cfg.Config.SQLite.Path != "" {
		w, err := sink.NewSQLiteWriter(cfg.Config.SQLite.Path)
		spawn("sqlite", w, err)
	}
	if cfg.Config.Nats.Enabled {
		w, err := sink.NewNatsWriter(cfg.Config.Nats.URL, cfg.Config.Nats.Subject)
		spawn("nats", w, err)
	}

	var uniques *sink.Uniques
	if out.UniquesCSV != "" || out.UniquesJSON != "" {
		uniques = sink.NewUniques()
		sink.Spawn(wg, "uniques", h.Register(), uniques)
	}
	return uniques
}

func emitUniques(u *sink.Uniques) {
	out := cfg.Config.Output
	if out.UniquesCSV != "" {
		if err := u.EmitCSV(out.UniquesCSV); err != nil {
			log.Error().Err(err).Str("path", out.UniquesCSV).Msg("Failed to write unique paths CSV")
		}
	}
	if out.UniquesJSON != "" {
		if err := u.EmitJSON(out.UniquesJSON); err != nil {
			log.Error().Err(err).Str("path", out.UniquesJSON).Msg("Failed to write unique paths JSON")
		}
	}
	log.Info().Int("paths", u.Len()).Msg("Aggregated unique paths")
}
