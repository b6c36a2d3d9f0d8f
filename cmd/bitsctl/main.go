package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/danmuck/bitsctl/internal/config"
	"github.com/danmuck/bitsctl/internal/eval"
	"github.com/danmuck/bitsctl/internal/observability"
	"github.com/danmuck/bitsctl/internal/protocol"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "bitsctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("bitsctl", flag.ContinueOnError)
	opts := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(fs, opts)
	if err != nil {
		return err
	}
	logger := observability.InitLogger("bitsctl", cfg.Logging())

	metrics := observability.NewMetrics()
	err = transmit(cfg, opts, stdin, stdout, logger, metrics)
	if cfg.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
			logger.Error().Err(werr).Str("path", cfg.MetricsFile).Msg("write metrics failed")
			if err == nil {
				err = fmt.Errorf("write metrics: %w", werr)
			}
		}
	}
	return err
}

// transmit decodes one transmission and writes the selected parts in cfg.Format.
func transmit(cfg config.Config, opts *flagOptions, stdin io.Reader, stdout io.Writer, logger zerolog.Logger, metrics *observability.Metrics) error {
	text, err := readTransmission(opts.hex, cfg.Input, stdin)
	if err != nil {
		return err
	}
	buf, err := protocol.ParseHex(text)
	if err != nil {
		return err
	}

	start := time.Now()
	packet, err := protocol.NewDecoder(cfg.Limits()).Decode(buf)
	elapsed := time.Since(start)
	count := 0
	if err == nil {
		count = packet.Count()
	}
	metrics.RecordDecode(count, elapsed, err)
	if err != nil {
		logger.Error().Err(err).Int("bytes", len(buf)).Msg("decode failed")
		return fmt.Errorf("decode: %w", err)
	}
	logger.Debug().
		Int("packets", count).
		Int("bits", packet.Bits).
		Int("padding", len(buf)*8-packet.Bits).
		Dur("duration", elapsed).
		Msg("decoded")

	evaluator, err := cfg.Evaluator()
	if err != nil {
		return err
	}

	switch cfg.Format {
	case config.FormatTree:
		return protocol.Format(stdout, packet)
	case config.FormatJSON:
		return writeJSON(stdout, metrics, cfg.Part, evaluator, packet)
	default:
		return writeText(stdout, logger, metrics, cfg.Part, evaluator, packet)
	}
}

func readTransmission(hexArg, input string, stdin io.Reader) (string, error) {
	if strings.TrimSpace(hexArg) != "" {
		return hexArg, nil
	}
	if input == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

type part struct {
	name string
	run  func() (uint64, error)
}

func selectParts(which string, evaluator eval.Evaluator, packet *protocol.Packet) []part {
	one := part{name: config.PartOne, run: func() (uint64, error) { return eval.VersionSum(packet), nil }}
	two := part{name: config.PartTwo, run: func() (uint64, error) { return evaluator.Evaluate(packet) }}
	switch which {
	case config.PartOne:
		return []part{one}
	case config.PartTwo:
		return []part{two}
	default:
		return []part{one, two}
	}
}

// writeText prints one timed line per part.
func writeText(w io.Writer, logger zerolog.Logger, metrics *observability.Metrics, which string, evaluator eval.Evaluator, packet *protocol.Packet) error {
	for _, p := range selectParts(which, evaluator, packet) {
		start := time.Now()
		result, err := p.run()
		elapsed := time.Since(start)
		metrics.RecordEval(p.name, err)
		if err != nil {
			logger.Error().Err(err).Str("part", p.name).Msg("evaluate failed")
			return fmt.Errorf("part %s: %w", p.name, err)
		}
		if _, err := fmt.Fprintf(w, "part%s %9d us %12d\n", p.name, elapsed.Microseconds(), result); err != nil {
			return err
		}
	}
	return nil
}

type jsonReport struct {
	Packet     *protocol.Packet `json:"packet"`
	Expression string           `json:"expression"`
	VersionSum *uint64          `json:"version_sum,omitempty"`
	Value      *uint64          `json:"value,omitempty"`
}

func writeJSON(w io.Writer, metrics *observability.Metrics, which string, evaluator eval.Evaluator, packet *protocol.Packet) error {
	report := jsonReport{Packet: packet, Expression: packet.String()}
	for _, p := range selectParts(which, evaluator, packet) {
		result, err := p.run()
		metrics.RecordEval(p.name, err)
		if err != nil {
			return fmt.Errorf("part %s: %w", p.name, err)
		}
		if p.name == config.PartOne {
			report.VersionSum = &result
		} else {
			report.Value = &result
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
