package cfg

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// HubConfiguration controls the broadcast channel between decoder and sinks
type HubConfiguration struct {
	Capacity int `toml:"capacity"` // Per-consumer buffer size
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// NatsConfiguration for the NATS record sink
type NatsConfiguration struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	Subject string `toml:"subject"`
}

// SQLiteConfiguration for the SQLite record sink. Empty path disables it.
type SQLiteConfiguration struct {
	Path string `toml:"path"`
}

// FilterConfiguration holds record filter defaults; CLI flags override them.
type FilterConfiguration struct {
	PathRegex string   `toml:"path_regex"`
	PathGlobs []string `toml:"path_globs"`
	AnyFlags  []string `toml:"any_flags"`
	AllFlags  []string `toml:"all_flags"`
}

// OutputConfiguration selects which sinks run and where they write.
type OutputConfiguration struct {
	PerFileCSV  bool   `toml:"per_file_csv"`  // Dump <input>.csv next to each capture file
	PerFileJSON bool   `toml:"per_file_json"` // Dump <input>.json next to each capture file
	CSV         string `toml:"csv"`           // Combined CSV path
	JSON        string `toml:"json"`          // Combined JSON-lines path
	YAML        string `toml:"yaml"`          // Combined YAML stream path
	Msgpack     string `toml:"msgpack"`       // Combined msgpack stream path
	UniquesCSV  string `toml:"uniques_csv"`   // Per-path aggregate CSV path
	UniquesJSON string `toml:"uniques_json"`  // Per-path aggregate JSON-lines path
}

// Configuration is the main configuration structure
type Configuration struct {
	Parallel bool `toml:"parallel"`

	Hub        HubConfiguration        `toml:"hub"`
	Filter     FilterConfiguration     `toml:"filter"`
	Output     OutputConfiguration     `toml:"output"`
	SQLite     SQLiteConfiguration     `toml:"sqlite"`
	Nats       NatsConfiguration       `toml:"nats"`
	Logging    LoggingConfiguration    `toml:"logging"`
	Prometheus PrometheusConfiguration `toml:"prometheus"`
}

// Command line flags
var (
	ConfigPathFlag = flag.String("config", "", "Path to configuration file")
	VerboseFlag    = flag.Bool("verbose", false, "Enable debug logging")

	PerFileCSVFlag  = flag.Bool("csvs", false, "Dump each capture file's records to <file>.csv next to it")
	PerFileJSONFlag = flag.Bool("jsons", false, "Dump each capture file's records to <file>.json next to it")
	CSVFlag         = flag.String("csv", "", "Write combined records to a single CSV file")
	JSONFlag        = flag.String("json", "", "Write combined records to a single JSON-lines file")
	YAMLFlag        = flag.String("yaml", "", "Write combined records to a single YAML stream")
	MsgpackFlag     = flag.String("msgpack", "", "Write combined records to a single msgpack stream")
	UniquesCSVFlag  = flag.String("uniques-csv", "", "Write one aggregate row per distinct path to a CSV file")
	UniquesJSONFlag = flag.String("uniques-json", "", "Write one aggregate row per distinct path to a JSON-lines file")
	SQLitePathFlag  = flag.String("sqlite", "", "Append records to a SQLite database at this path")
	NatsURLFlag     = flag.String("nats-url", "", "Publish records to NATS at this URL")
	NatsSubjectFlag = flag.String("nats-subject", "", "NATS subject for published records")

	ParallelFlag  = flag.Bool("parallel", false, "Decode input files in parallel (no cross-file order guarantee)")
	PathRegexFlag = flag.String("path-regex", "", "Only keep records whose path matches this regular expression")
	PathGlobsFlag = flag.String("path-globs", "", "Comma-separated glob patterns; keep records matching any")
	AnyFlagsFlag  = flag.String("any-flags", "", "Comma-separated flag names; keep records carrying at least one")
	AllFlagsFlag  = flag.String("all-flags", "", "Comma-separated flag names; keep records carrying all of them")
)

// Default configuration
var Config = &Configuration{
	Hub: HubConfiguration{
		Capacity: 4096,
	},

	Logging: LoggingConfiguration{
		Verbose: false,
		Format:  "console",
	},

	Nats: NatsConfiguration{
		Subject: "fseparse.records",
	},

	Prometheus: PrometheusConfiguration{
		Enabled: false,
		Address: "0.0.0.0",
		Port:    9090,
	},
}

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	// Apply CLI overrides
	if *VerboseFlag {
		Config.Logging.Verbose = true
	}
	if *PerFileCSVFlag {
		Config.Output.PerFileCSV = true
	}
	if *PerFileJSONFlag {
		Config.Output.PerFileJSON = true
	}
	if *CSVFlag != "" {
		Config.Output.CSV = *CSVFlag
	}
	if *JSONFlag != "" {
		Config.Output.JSON = *JSONFlag
	}
	if *YAMLFlag != "" {
		Config.Output.YAML = *YAMLFlag
	}
	if *MsgpackFlag != "" {
		Config.Output.Msgpack = *MsgpackFlag
	}
	if *UniquesCSVFlag != "" {
		Config.Output.UniquesCSV = *UniquesCSVFlag
	}
	if *UniquesJSONFlag != "" {
		Config.Output.UniquesJSON = *UniquesJSONFlag
	}
	if *SQLitePathFlag != "" {
		Config.SQLite.Path = *SQLitePathFlag
	}
	if *NatsURLFlag != "" {
		Config.Nats.Enabled = true
		Config.Nats.URL = *NatsURLFlag
	}
	if *NatsSubjectFlag != "" {
		Config.Nats.Subject = *NatsSubjectFlag
	}
	if *ParallelFlag {
		Config.Parallel = true
	}
	if *PathRegexFlag != "" {
		Config.Filter.PathRegex = *PathRegexFlag
	}
	if *PathGlobsFlag != "" {
		Config.Filter.PathGlobs = splitList(*PathGlobsFlag)
	}
	if *AnyFlagsFlag != "" {
		Config.Filter.AnyFlags = splitList(*AnyFlagsFlag)
	}
	if *AllFlagsFlag != "" {
		Config.Filter.AllFlags = splitList(*AllFlagsFlag)
	}

	return nil
}

// splitList parses a comma-separated flag value, dropping empty elements.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks configuration for errors
func Validate() error {
	if Config.Hub.Capacity < 1 {
		return fmt.Errorf("hub capacity must be >= 1, got %d", Config.Hub.Capacity)
	}

	if Config.Logging.Format != "console" && Config.Logging.Format != "json" {
		return fmt.Errorf("invalid logging format: %s", Config.Logging.Format)
	}

	if Config.Prometheus.Enabled && (Config.Prometheus.Port < 1 || Config.Prometheus.Port > 65535) {
		return fmt.Errorf("invalid prometheus port: %d", Config.Prometheus.Port)
	}

	if Config.Nats.Enabled {
		if Config.Nats.URL == "" {
			return fmt.Errorf("nats sink enabled but no URL configured")
		}
		if Config.Nats.Subject == "" {
			return fmt.Errorf("nats sink enabled but no subject configured")
		}
	}

	return nil
}
