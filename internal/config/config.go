package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/bitsctl/internal/eval"
	"github.com/danmuck/bitsctl/internal/logging"
	"github.com/danmuck/bitsctl/internal/protocol"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatTree = "tree"
)

// Parts selectable for a run.
const (
	PartOne = "1"
	PartTwo = "2"
	PartAll = "all"
)

// Config is the bitsctl runtime configuration.
type Config struct {
	Input          string
	Part           string
	Format         string
	OverflowPolicy string
	MaxDepth       int
	MaxPackets     int
	MetricsFile    string
	Log            LogConfig
}

type LogConfig struct {
	Level     string
	Timestamp bool
	NoColor   bool
	JSON      bool
}

// bitsctl config.toml key mapping.
type fileConfig struct {
	Input          string        `toml:"input"`
	Part           string        `toml:"part"`
	Format         string        `toml:"format"`
	OverflowPolicy string        `toml:"overflow_policy"`
	MaxDepth       int           `toml:"max_depth"`
	MaxPackets     int           `toml:"max_packets"`
	MetricsFile    string        `toml:"metrics_file"`
	Log            fileLogConfig `toml:"log"`
}

type fileLogConfig struct {
	Level     string `toml:"level"`
	Timestamp bool   `toml:"timestamp"`
	NoColor   bool   `toml:"no_color"`
	JSON      bool   `toml:"json"`
}

func Default() Config {
	limits := protocol.DefaultLimits()
	return Config{
		Input:          "-",
		Part:           PartAll,
		Format:         FormatText,
		OverflowPolicy: eval.Wrap.String(),
		MaxDepth:       limits.MaxDepth,
		MaxPackets:     limits.MaxPackets,
		Log: LogConfig{
			Level:     "info",
			Timestamp: true,
		},
	}
}

// Load reads path and overlays every defined key onto Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load bitsctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load bitsctl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("input") {
		cfg.Input = strings.TrimSpace(raw.Input)
	}
	if meta.IsDefined("part") {
		cfg.Part = strings.ToLower(strings.TrimSpace(raw.Part))
	}
	if meta.IsDefined("format") {
		cfg.Format = strings.ToLower(strings.TrimSpace(raw.Format))
	}
	if meta.IsDefined("overflow_policy") {
		cfg.OverflowPolicy = strings.TrimSpace(raw.OverflowPolicy)
	}
	if meta.IsDefined("max_depth") {
		cfg.MaxDepth = raw.MaxDepth
	}
	if meta.IsDefined("max_packets") {
		cfg.MaxPackets = raw.MaxPackets
	}
	if meta.IsDefined("metrics_file") {
		cfg.MetricsFile = strings.TrimSpace(raw.MetricsFile)
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Log.Timestamp = raw.Log.Timestamp
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}
	if meta.IsDefined("log", "json") {
		cfg.Log.JSON = raw.Log.JSON
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("load bitsctl config %s: %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Input) == "" {
		return fmt.Errorf("input is required")
	}
	switch cfg.Part {
	case PartOne, PartTwo, PartAll:
	default:
		return fmt.Errorf("part must be 1, 2 or all, got %q", cfg.Part)
	}
	switch cfg.Format {
	case FormatText, FormatJSON, FormatTree:
	default:
		return fmt.Errorf("format must be text, json or tree, got %q", cfg.Format)
	}
	if _, err := eval.ParsePolicy(cfg.OverflowPolicy); err != nil {
		return err
	}
	if cfg.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative")
	}
	if cfg.MaxPackets < 0 {
		return fmt.Errorf("max_packets must not be negative")
	}
	if strings.TrimSpace(cfg.Log.Level) != "" {
		if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
			return fmt.Errorf("unknown log level %q", cfg.Log.Level)
		}
	}
	return nil
}

// Limits returns the decoder limits configured in cfg.
func (cfg Config) Limits() protocol.Limits {
	return protocol.Limits{MaxDepth: cfg.MaxDepth, MaxPackets: cfg.MaxPackets}
}

// Evaluator returns an evaluator using the configured overflow policy.
func (cfg Config) Evaluator() (eval.Evaluator, error) {
	policy, err := eval.ParsePolicy(cfg.OverflowPolicy)
	if err != nil {
		return eval.Evaluator{}, err
	}
	return eval.Evaluator{Overflow: policy}, nil
}

// Logging converts the [log] table, then applies environment overrides.
func (cfg Config) Logging() logging.Config {
	out := logging.DefaultConfig(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(cfg.Log.Level); ok {
		out.Level = lvl
	}
	out.Timestamp = cfg.Log.Timestamp
	out.NoColor = cfg.Log.NoColor
	out.JSON = cfg.Log.JSON
	logging.ApplyEnvOverrides(&out)
	return out
}
