package main

import (
	"flag"
	"strings"

	"github.com/danmuck/bitsctl/internal/config"
)

type flagOptions struct {
	config  string
	input   string
	hex     string
	part    string
	format  string
	policy  string
	metrics string
}

func registerFlags(fs *flag.FlagSet) *flagOptions {
	opts := &flagOptions{}
	fs.StringVar(&opts.config, "config", "", "path to bitsctl config.toml")
	fs.StringVar(&opts.input, "input", "", `hex transmission file, "-" for stdin`)
	fs.StringVar(&opts.hex, "hex", "", "hex transmission given inline")
	fs.StringVar(&opts.part, "part", "", "1 (version sum), 2 (value) or all")
	fs.StringVar(&opts.format, "format", "", "output format: text|json|tree")
	fs.StringVar(&opts.policy, "policy", "", "overflow policy: wrap|checked")
	fs.StringVar(&opts.metrics, "metrics", "", "write prometheus metrics to this textfile after the run")
	return opts
}

// loadConfig layers explicitly set flags over the config file over defaults.
func loadConfig(fs *flag.FlagSet, opts *flagOptions) (config.Config, error) {
	cfg := config.Default()
	if path := strings.TrimSpace(opts.config); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Input = strings.TrimSpace(opts.input)
		case "part":
			cfg.Part = strings.ToLower(strings.TrimSpace(opts.part))
		case "format":
			cfg.Format = strings.ToLower(strings.TrimSpace(opts.format))
		case "policy":
			cfg.OverflowPolicy = strings.TrimSpace(opts.policy)
		case "metrics":
			cfg.MetricsFile = strings.TrimSpace(opts.metrics)
		}
	})

	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
